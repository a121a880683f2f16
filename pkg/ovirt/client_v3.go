package ovirt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// v3Connection talks to the legacy XML API at /ovirt-engine/api.
type v3Connection struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	transport  *http.Transport
}

func newV3Connection(p v3Params) (Connection, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: !p.VerifySSL} //nolint:gosec // verify_ssl is an explicit endpoint setting
	if len(p.CACerts) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(p.CACerts) {
			return nil, fmt.Errorf("CA bundle contains no valid PEM certificates")
		}
		tlsCfg.RootCAs = pool
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: tlsCfg,
		DialContext:     (&net.Dialer{Timeout: p.OpenTimeout}).DialContext,
	}

	host := p.Host
	if p.Port != 0 {
		host = net.JoinHostPort(strings.Trim(p.Host, "[]"), strconv.Itoa(p.Port))
	}
	u := url.URL{Scheme: p.Scheme, Host: host, Path: p.Path}

	return &v3Connection{
		baseURL:  strings.TrimSuffix(u.String(), "/"),
		username: p.Username,
		password: p.Password,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   p.ReadTimeout,
		},
		transport: transport,
	}, nil
}

func (c *v3Connection) Version() Version { return V3 }

func (c *v3Connection) URL() string { return c.baseURL }

// get performs a GET request and decodes the XML response into result.
func (c *v3Connection) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("Version", "3")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := xml.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s: %w", c.baseURL+path, err)
	}
	return nil
}

func (c *v3Connection) Test(ctx context.Context) error {
	var api v3API
	return c.get(ctx, "", &api)
}

func (c *v3Connection) ProductInfo(ctx context.Context) (*ProductInfo, error) {
	var api v3API
	if err := c.get(ctx, "", &api); err != nil {
		return nil, err
	}
	v := api.ProductInfo.Version
	full := v.FullVersion
	if full == "" {
		full = fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
	}
	return &ProductInfo{
		Name:        api.ProductInfo.Name,
		FullVersion: full,
		Major:       v.Major,
		Minor:       v.Minor,
	}, nil
}

func (c *v3Connection) Inventory(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{}

	var clusters v3Clusters
	if err := c.get(ctx, "/clusters", &clusters); err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	for _, cl := range clusters.Clusters {
		inv.Clusters = append(inv.Clusters, Cluster{
			ID:             cl.ID,
			Href:           cl.Href,
			Name:           cl.Name,
			DataCenterHref: cl.DataCenter.href(),
		})
	}

	var hosts v3Hosts
	if err := c.get(ctx, "/hosts", &hosts); err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	for _, h := range hosts.Hosts {
		inv.Hosts = append(inv.Hosts, Host{
			ID:          h.ID,
			Href:        h.Href,
			Name:        h.Name,
			Address:     h.Address,
			Status:      h.Status.State,
			ClusterHref: h.Cluster.href(),
		})
	}

	var vms v3VMs
	if err := c.get(ctx, "/vms", &vms); err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}
	for _, v := range vms.VMs {
		inv.VMs = append(inv.VMs, VM{
			ID:           v.ID,
			Href:         v.Href,
			Name:         v.Name,
			Status:       v.Status.State,
			MemoryBytes:  v.Memory,
			HostHref:     v.Host.href(),
			ClusterHref:  v.Cluster.href(),
			TemplateHref: v.Template.href(),
		})
	}

	var templates v3Templates
	if err := c.get(ctx, "/templates", &templates); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for _, t := range templates.Templates {
		inv.Templates = append(inv.Templates, Template{
			ID:          t.ID,
			Href:        t.Href,
			Name:        t.Name,
			Status:      t.Status.State,
			ClusterHref: t.Cluster.href(),
		})
	}

	return inv, nil
}

func (c *v3Connection) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// XML documents of the version 3 API.

type v3Link struct {
	ID   string `xml:"id,attr"`
	Href string `xml:"href,attr"`
}

func (l *v3Link) href() string {
	if l == nil {
		return ""
	}
	return l.Href
}

type v3Status struct {
	State string `xml:"state"`
}

type v3API struct {
	XMLName     xml.Name `xml:"api"`
	ProductInfo struct {
		Name    string `xml:"name"`
		Version struct {
			Major       int    `xml:"major,attr"`
			Minor       int    `xml:"minor,attr"`
			Build       int    `xml:"build,attr"`
			Revision    int    `xml:"revision,attr"`
			FullVersion string `xml:"full_version"`
		} `xml:"version"`
	} `xml:"product_info"`
}

type v3Clusters struct {
	Clusters []struct {
		ID         string  `xml:"id,attr"`
		Href       string  `xml:"href,attr"`
		Name       string  `xml:"name"`
		DataCenter *v3Link `xml:"data_center"`
	} `xml:"cluster"`
}

type v3Hosts struct {
	Hosts []struct {
		ID      string   `xml:"id,attr"`
		Href    string   `xml:"href,attr"`
		Name    string   `xml:"name"`
		Address string   `xml:"address"`
		Status  v3Status `xml:"status"`
		Cluster *v3Link  `xml:"cluster"`
	} `xml:"host"`
}

type v3VMs struct {
	VMs []struct {
		ID       string   `xml:"id,attr"`
		Href     string   `xml:"href,attr"`
		Name     string   `xml:"name"`
		Status   v3Status `xml:"status"`
		Memory   int64    `xml:"memory"`
		Host     *v3Link  `xml:"host"`
		Cluster  *v3Link  `xml:"cluster"`
		Template *v3Link  `xml:"template"`
	} `xml:"vm"`
}

type v3Templates struct {
	Templates []struct {
		ID      string   `xml:"id,attr"`
		Href    string   `xml:"href,attr"`
		Name    string   `xml:"name"`
		Status  v3Status `xml:"status"`
		Cluster *v3Link  `xml:"cluster"`
	} `xml:"template"`
}

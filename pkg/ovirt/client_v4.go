package ovirt

import (
	"context"
	"fmt"

	ovirtsdk "github.com/ovirt/go-ovirt"
)

// v4Connection wraps a go-ovirt SDK connection.
type v4Connection struct {
	conn    *ovirtsdk.Connection
	url     string
	service ServiceRole
}

func newV4Connection(p v4Params) (Connection, error) {
	builder := ovirtsdk.NewConnectionBuilder().
		URL(p.URL).
		Username(p.Username).
		Password(p.Password).
		Insecure(p.Insecure)
	if len(p.CACerts) > 0 {
		builder = builder.CACert(p.CACerts)
	}
	if p.Timeout > 0 {
		builder = builder.Timeout(p.Timeout)
	}

	conn, err := builder.Build()
	if err != nil {
		return nil, &ClientError{Version: V4, Err: err}
	}
	return &v4Connection{conn: conn, url: p.URL, service: p.Service}, nil
}

func (c *v4Connection) Version() Version { return V4 }

func (c *v4Connection) URL() string { return c.url }

func (c *v4Connection) Test(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.conn.Test(); err != nil {
		return &ClientError{Version: V4, Err: err}
	}
	return nil
}

func (c *v4Connection) ProductInfo(ctx context.Context) (*ProductInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.conn.SystemService().Get().Send()
	if err != nil {
		return nil, &ClientError{Version: V4, Err: err}
	}
	api, ok := resp.Api()
	if !ok {
		return nil, &ClientError{Version: V4, Err: fmt.Errorf("engine returned no API root")}
	}

	info := &ProductInfo{}
	pi, ok := api.ProductInfo()
	if !ok {
		return info, nil
	}
	info.Name, _ = pi.Name()
	if v, ok := pi.Version(); ok {
		info.FullVersion, _ = v.FullVersion()
		major, _ := v.Major()
		minor, _ := v.Minor()
		info.Major, info.Minor = int(major), int(minor)
	}
	return info, nil
}

func (c *v4Connection) Inventory(ctx context.Context) (*Inventory, error) {
	sys := c.conn.SystemService()
	inv := &Inventory{}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clustersResp, err := sys.ClustersService().List().Send()
	if err != nil {
		return nil, &ClientError{Version: V4, Err: fmt.Errorf("list clusters: %w", err)}
	}
	if clusters, ok := clustersResp.Clusters(); ok {
		for _, cl := range clusters.Slice() {
			rec := Cluster{}
			rec.ID, _ = cl.Id()
			rec.Href, _ = cl.Href()
			rec.Name, _ = cl.Name()
			if dc, ok := cl.DataCenter(); ok {
				rec.DataCenterHref, _ = dc.Href()
			}
			inv.Clusters = append(inv.Clusters, rec)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hostsResp, err := sys.HostsService().List().Send()
	if err != nil {
		return nil, &ClientError{Version: V4, Err: fmt.Errorf("list hosts: %w", err)}
	}
	if hosts, ok := hostsResp.Hosts(); ok {
		for _, h := range hosts.Slice() {
			rec := Host{}
			rec.ID, _ = h.Id()
			rec.Href, _ = h.Href()
			rec.Name, _ = h.Name()
			rec.Address, _ = h.Address()
			if st, ok := h.Status(); ok {
				rec.Status = string(st)
			}
			if cl, ok := h.Cluster(); ok {
				rec.ClusterHref, _ = cl.Href()
			}
			inv.Hosts = append(inv.Hosts, rec)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vmsResp, err := sys.VmsService().List().Send()
	if err != nil {
		return nil, &ClientError{Version: V4, Err: fmt.Errorf("list vms: %w", err)}
	}
	if vms, ok := vmsResp.Vms(); ok {
		for _, v := range vms.Slice() {
			rec := VM{}
			rec.ID, _ = v.Id()
			rec.Href, _ = v.Href()
			rec.Name, _ = v.Name()
			rec.MemoryBytes, _ = v.Memory()
			if st, ok := v.Status(); ok {
				rec.Status = string(st)
			}
			if h, ok := v.Host(); ok {
				rec.HostHref, _ = h.Href()
			}
			if cl, ok := v.Cluster(); ok {
				rec.ClusterHref, _ = cl.Href()
			}
			if t, ok := v.Template(); ok {
				rec.TemplateHref, _ = t.Href()
			}
			inv.VMs = append(inv.VMs, rec)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	templatesResp, err := sys.TemplatesService().List().Send()
	if err != nil {
		return nil, &ClientError{Version: V4, Err: fmt.Errorf("list templates: %w", err)}
	}
	if templates, ok := templatesResp.Templates(); ok {
		for _, t := range templates.Slice() {
			rec := Template{}
			rec.ID, _ = t.Id()
			rec.Href, _ = t.Href()
			rec.Name, _ = t.Name()
			if st, ok := t.Status(); ok {
				rec.Status = string(st)
			}
			if cl, ok := t.Cluster(); ok {
				rec.ClusterHref, _ = cl.Href()
			}
			inv.Templates = append(inv.Templates, rec)
		}
	}

	return inv, nil
}

func (c *v4Connection) Close() error {
	return c.conn.Close()
}

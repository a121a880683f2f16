package main

import (
	"errors"

	"github.com/agrare/foreman-providers-ovirt/pkg/config"
	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
)

type userError struct {
	msg  string
	hint string
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Hint() string  { return e.hint }

// explain turns library errors into user errors with a hint where one helps.
func explain(err error) error {
	if err == nil {
		return nil
	}
	var ue *userError
	if errors.As(err, &ue) {
		return err
	}
	if errors.Is(err, config.ErrNoCreationRule) {
		return &userError{
			msg:  err.Error(),
			hint: "Edit .sops.yaml so configs/*.sops.yaml matches a creation rule",
		}
	}

	var hint string
	switch ovirt.KindOf(err) {
	case ovirt.KindConnectFailure:
		hint = "Check hostname, port and CA certificates of the manager"
	case ovirt.KindUnreachable:
		hint = "The engine did not answer; check network access and the engine service"
	case ovirt.KindInvalidCredentials:
		hint = "Update the credentials with: ovirtprovider managers add"
	case ovirt.KindInventoryUnavailable:
		hint = "Run: ovirtprovider verify <manager> --debug"
	default:
		return err
	}
	return &userError{msg: err.Error(), hint: hint}
}

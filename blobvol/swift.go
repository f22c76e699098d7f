/*
	This file implements the OpenStack Swift backend for blob volumes.
*/

package blobvol

import (
	"context"
	"fmt"

	"github.com/ncw/swift"

	"github.com/gred-clermont/gomero/gomero"
)

// SwiftConfig holds the Swift connection settings of the [blob.swift]
// TOML section.
type SwiftConfig struct {
	// Auth is the authentication URL; setting it selects the Swift
	// backend.
	Auth string `toml:"auth"`

	User    string `toml:"user"`
	Key     string `toml:"key"`
	Project string `toml:"project"`
	Domain  string `toml:"domain"`
}

func (c SwiftConfig) check() error {
	for param, value := range map[string]string{
		"auth": c.Auth,
		"user": c.User,
		"key":  c.Key,
	} {
		if value == "" {
			return fmt.Errorf("swift configuration parameter %q must not be empty", param)
		}
	}
	return nil
}

// swiftObjects adapts a Swift container to the objects interface.
type swiftObjects struct {
	container string
	conn      *swift.Connection
}

// openSwift authenticates against Swift and ensures the container exists.
func openSwift(config SwiftConfig, container string) (objects, error) {
	if err := config.check(); err != nil {
		return nil, err
	}
	if container == "" {
		return nil, fmt.Errorf("no Swift container named in the blob ref")
	}
	conn := &swift.Connection{
		UserName:     config.User,
		ApiKey:       config.Key,
		AuthUrl:      config.Auth,
		Tenant:       config.Project,
		TenantDomain: config.Domain,
	}
	if conn.Tenant != "" {
		conn.AuthVersion = 3
	}
	if err := conn.Authenticate(); err != nil {
		return nil, fmt.Errorf("unable to authenticate against Swift @ %q: %v", config.Auth, err)
	}
	if _, _, err := conn.Container(container); err != nil {
		if err == swift.ContainerNotFound {
			if err := conn.ContainerCreate(container, nil); err != nil {
				return nil, fmt.Errorf("unable to create Swift container %q: %v", container, err)
			}
		} else {
			return nil, fmt.Errorf("unable to check Swift container %q: %v", container, err)
		}
	}
	gomero.Infof("Opened Swift container %q, user %q\n", container, config.User)
	return &swiftObjects{container: container, conn: conn}, nil
}

func (o *swiftObjects) read(ctx context.Context, key string) ([]byte, error) {
	data, err := o.conn.ObjectGetBytes(o.container, key)
	if err == swift.ObjectNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (o *swiftObjects) write(ctx context.Context, key string, data []byte) error {
	return o.conn.ObjectPutBytes(o.container, key, data, "application/octet-stream")
}

func (o *swiftObjects) close() error {
	o.conn.UnAuthenticate()
	return nil
}

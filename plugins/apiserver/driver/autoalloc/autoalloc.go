// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package autoalloc implements the service driver auto-allocating route
// distinguishers and VXLAN VNIs for newly created VPNs from distributed
// ID pools.
package autoalloc

import (
	"fmt"

	"github.com/ligato/cn-infra/logging"

	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/idalloc"
	"github.com/bestjie/networking-bgpvpn/plugins/idalloc/allocation"
)

const (
	// RDPoolName is the pool of assigned-number indexes for auto-generated
	// route distinguishers.
	RDPoolName = "rd"

	// VNIPoolName is the pool of VXLAN VNIs for l2 VPNs created without
	// an explicit VNI.
	VNIPoolName = "vni"
)

// Config defines the allocation ranges of the driver.
type Config struct {
	AutoRD     bool   `json:"autoRD"`
	AutoRDASN  uint32 `json:"autoRDASN"`
	RDIndexMin uint32 `json:"rdIndexMin"`
	RDIndexMax uint32 `json:"rdIndexMax"`
	VniMin     uint32 `json:"vniMin"`
	VniMax     uint32 `json:"vniMax"`
}

// DefaultConfig returns configuration with default allocation ranges.
func DefaultConfig() *Config {
	return &Config{
		AutoRD:     true,
		AutoRDASN:  64512,
		RDIndexMin: 1,
		RDIndexMax: 65535,
		VniMin:     5000,
		VniMax:     5999,
	}
}

// Driver auto-allocates route distinguishers and VNIs.
type Driver struct {
	driver.DriverBase

	log     logging.Logger
	idAlloc idalloc.API
	config  *Config

	poolsReady bool
}

// NewDriver creates a new instance of the auto-allocation driver.
func NewDriver(idAlloc idalloc.API, config *Config, log logging.Logger) *Driver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Driver{
		log:     log,
		idAlloc: idAlloc,
		config:  config,
	}
}

// String identifies the driver in logs.
func (d *Driver) String() string {
	return "autoalloc"
}

// CreateVPNPrecommit fills in auto-allocated route distinguisher and VNI
// before the VPN is persisted.
func (d *Driver) CreateVPNPrecommit(v *vpn.VPN) error {
	if err := d.ensurePools(); err != nil {
		return err
	}

	if len(v.RouteDistinguishers) == 0 && d.config.AutoRD {
		idx, err := d.idAlloc.GetOrAllocateID(RDPoolName, v.Id)
		if err != nil {
			return err
		}
		v.RouteDistinguishers = []string{fmt.Sprintf("%d:%d", d.config.AutoRDASN, idx)}
		d.log.Debugf("Auto-allocated RD %s for VPN %s", v.RouteDistinguishers[0], v.Id)
	}

	if v.Type == vpn.TypeL2 && v.Vni == 0 {
		vni, err := d.idAlloc.GetOrAllocateID(VNIPoolName, v.Id)
		if err != nil {
			return err
		}
		v.Vni = vni
		d.log.Debugf("Auto-allocated VNI %d for VPN %s", vni, v.Id)
	}

	return nil
}

// CreateVPNAbort releases the allocations made by the precommit of a create
// that was aborted before the VPN got persisted.
func (d *Driver) CreateVPNAbort(v *vpn.VPN) error {
	if err := d.ensurePools(); err != nil {
		return err
	}
	if err := d.idAlloc.ReleaseID(RDPoolName, v.Id); err != nil {
		return err
	}
	return d.idAlloc.ReleaseID(VNIPoolName, v.Id)
}

// DeleteVPNPostcommit releases the allocations held by the deleted VPN.
func (d *Driver) DeleteVPNPostcommit(v *vpn.VPN) error {
	if err := d.ensurePools(); err != nil {
		return err
	}
	if err := d.idAlloc.ReleaseID(RDPoolName, v.Id); err != nil {
		return err
	}
	return d.idAlloc.ReleaseID(VNIPoolName, v.Id)
}

// ensurePools initializes the allocation pools on the first use
// (the datastore may not be connected yet when the driver is created).
func (d *Driver) ensurePools() error {
	if d.poolsReady {
		return nil
	}
	err := d.idAlloc.InitPool(RDPoolName, &allocation.Range{
		MinId: d.config.RDIndexMin,
		MaxId: d.config.RDIndexMax,
	})
	if err != nil {
		return err
	}
	err = d.idAlloc.InitPool(VNIPoolName, &allocation.Range{
		MinId: d.config.VniMin,
		MaxId: d.config.VniMax,
	})
	if err != nil {
		return err
	}
	d.poolsReady = true
	return nil
}

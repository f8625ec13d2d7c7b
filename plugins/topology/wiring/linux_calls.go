// Copyright (c) 2018 Cisco and/or its affiliates.
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

package wiring

import (
	"syscall"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// linuxCalls implements HostCalls with netlink. Operations inside a node
// namespace run on a locked OS thread switched into that namespace.
type linuxCalls struct {
}

// NewLinuxCalls returns HostCalls operating on the kernel of this host.
func NewLinuxCalls() HostCalls {
	return &linuxCalls{}
}

func (l *linuxCalls) AddVethPair(name, peerName string) error {
	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: name},
		PeerName:  peerName,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		if isExist(err) {
			return errors.Wrapf(ErrDeviceConflict, "%s/%s", name, peerName)
		}
		return errors.Wrapf(err, "failed to add veth %s/%s", name, peerName)
	}

	for _, ifName := range []string{name, peerName} {
		link, err := netlink.LinkByName(ifName)
		if err != nil {
			return errors.Wrapf(err, "failed to look up %s", ifName)
		}
		if err := netlink.LinkSetUp(link); err != nil {
			return errors.Wrapf(err, "failed to set %s up", ifName)
		}
	}
	return nil
}

func (l *linuxCalls) LinkExists(nsPath, name string) (exists bool, err error) {
	err = withNs(nsPath, func() error {
		_, err := netlink.LinkByName(name)
		if err == nil {
			exists = true
			return nil
		}
		if isNotFound(err) {
			return nil
		}
		return err
	})
	return exists, err
}

func (l *linuxCalls) LinkSetNs(name, nsPath string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if isNotFound(err) {
			return errors.Wrap(ErrDeviceNotFound, name)
		}
		return err
	}
	netNS, err := ns.GetNS(nsPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open namespace %s", nsPath)
	}
	defer netNS.Close()

	return netlink.LinkSetNsFd(link, int(netNS.Fd()))
}

func (l *linuxCalls) LinkSetUpWithAddress(nsPath, name, addr string) error {
	ipAddr, err := netlink.ParseAddr(addr)
	if err != nil {
		return errors.Wrapf(err, "invalid address %q", addr)
	}
	return withNs(nsPath, func() error {
		link, err := netlink.LinkByName(name)
		if err != nil {
			if isNotFound(err) {
				return errors.Wrap(ErrDeviceNotFound, name)
			}
			return err
		}
		if err := netlink.LinkSetUp(link); err != nil {
			return errors.Wrapf(err, "failed to set %s up", name)
		}
		if err := netlink.AddrAdd(link, ipAddr); err != nil && !isExist(err) {
			return errors.Wrapf(err, "failed to add address %s to %s", addr, name)
		}
		return nil
	})
}

func (l *linuxCalls) LinkDel(nsPath, name string) error {
	return withNs(nsPath, func() error {
		link, err := netlink.LinkByName(name)
		if err != nil {
			if isNotFound(err) {
				return errors.Wrap(ErrDeviceNotFound, name)
			}
			return err
		}
		return netlink.LinkDel(link)
	})
}

func (l *linuxCalls) LinkList(nsPath string) (names []string, err error) {
	err = withNs(nsPath, func() error {
		links, err := netlink.LinkList()
		if err != nil {
			return err
		}
		for _, link := range links {
			names = append(names, link.Attrs().Name)
		}
		return nil
	})
	return names, err
}

// withNs runs toRun inside the namespace at nsPath, or in the current
// namespace if nsPath is empty.
func withNs(nsPath string, toRun func() error) error {
	if nsPath == "" {
		return toRun()
	}
	return ns.WithNetNSPath(nsPath, func(ns.NetNS) error {
		return toRun()
	})
}

func isExist(err error) bool {
	errno, ok := errors.Cause(err).(syscall.Errno)
	return ok && errno == syscall.EEXIST
}

func isNotFound(err error) bool {
	if _, ok := err.(netlink.LinkNotFoundError); ok {
		return true
	}
	errno, ok := errors.Cause(err).(syscall.Errno)
	return ok && errno == syscall.ENODEV
}

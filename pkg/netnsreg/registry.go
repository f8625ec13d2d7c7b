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

// Package netnsreg maintains named handles to network namespaces of
// running processes, in the layout used by "ip netns": one entry per name
// in a shared directory, pointing to /proc/<pid>/ns/net.
package netnsreg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// DefaultDir is the directory scanned by "ip netns".
	DefaultDir = "/var/run/netns"

	// DefaultProcRoot is where process namespaces are looked up.
	DefaultProcRoot = "/proc"
)

// Registry binds symbolic names to process network namespaces.
type Registry struct {
	Dir      string
	ProcRoot string
}

// NewRegistry returns a registry rooted at dir. Empty dir selects DefaultDir.
func NewRegistry(dir string) *Registry {
	if dir == "" {
		dir = DefaultDir
	}
	return &Registry{Dir: dir, ProcRoot: DefaultProcRoot}
}

// Path returns the registry path of the given name.
func (r *Registry) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// ProcNsPath returns the network namespace path of a process.
func (r *Registry) ProcNsPath(pid int) string {
	return filepath.Join(r.procRoot(), fmt.Sprint(pid), "ns", "net")
}

// Bind points the entry for name to the network namespace of pid and
// returns the entry path. An existing entry is replaced.
func (r *Registry) Bind(name string, pid int) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", errors.Errorf("invalid namespace name %q", name)
	}
	if pid <= 0 {
		return "", errors.Errorf("invalid pid %d for namespace %s", pid, name)
	}
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create namespace directory %s", r.Dir)
	}

	path := r.Path(name)
	target := r.ProcNsPath(pid)

	// swap the entry in with a rename so that readers never see it missing
	tmp := filepath.Join(r.Dir, "."+name+".tmp")
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return "", errors.Wrapf(err, "failed to link %s to %s", tmp, target)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", errors.Wrapf(err, "failed to bind namespace %s", path)
	}
	return path, nil
}

// Lookup returns the entry path for name if it exists.
func (r *Registry) Lookup(name string) (string, bool) {
	path := r.Path(name)
	if _, err := os.Lstat(path); err != nil {
		return "", false
	}
	return path, true
}

// Unbind removes the entry for name. A missing entry is not an error.
func (r *Registry) Unbind(name string) error {
	err := os.Remove(r.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to unbind namespace %s", name)
	}
	return nil
}

func (r *Registry) procRoot() string {
	if r.ProcRoot == "" {
		return DefaultProcRoot
	}
	return r.ProcRoot
}

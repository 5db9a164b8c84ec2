// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"fmt"
	"strings"
)

// ExportRecord describes an entry point of the compiled executable.
type ExportRecord struct {
	// Name is the exported symbol; it matches a function name.
	Name string

	// Ordinal is the position of the export in the executable.
	Ordinal int
}

// Module holds the functions of one compiled executable.
type Module struct {
	// Name is the module name.
	Name string

	// Functions are kept in declaration order; passes iterate in this order.
	Functions []*Function

	exports map[string]*ExportRecord
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		exports: make(map[string]*ExportRecord),
	}
}

// AddFunction appends fn to the module.
func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}

// Export creates an export record for the function name, or returns the
// existing one.
func (m *Module) Export(name string) *ExportRecord {
	if rec, ok := m.exports[name]; ok {
		return rec
	}
	rec := &ExportRecord{Name: name, Ordinal: len(m.exports)}
	m.exports[name] = rec
	return rec
}

// LookupExport returns the export record for name, or nil.
func (m *Module) LookupExport(name string) *ExportRecord {
	return m.exports[name]
}

// LookupFunction returns the function with the given name, or nil.
func (m *Module) LookupFunction(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// String returns a dump of every function in the module.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module @%s {\n", m.Name)
	for _, fn := range m.Functions {
		if rec := m.exports[fn.Name]; rec != nil {
			fmt.Fprintf(&sb, "// export @%s ordinal(%d)\n", rec.Name, rec.Ordinal)
		}
		sb.WriteString(fn.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

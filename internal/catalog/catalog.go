// Package catalog holds the fixed table of labelled storage locations that
// dirsweep inspects and cleans.
//
// A Catalog maps each label to one or more absolute paths and designates at
// most one label as protected: it may be sized but is never cleaned.
// Catalogs are immutable once built.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

// Label names a top-level storage category, e.g. "Documents".
type Label string

// RootSpec associates a label with the paths backing it.
type RootSpec struct {
	// Label is the name shown to the user.
	Label Label `json:"label"`
	// Paths are the absolute directories that make up the label, in order.
	Paths []string `json:"paths"`
	// Protected marks the label as exempt from cleaning.
	Protected bool `json:"protected"`
}

// Base returns the first configured path, which is the one used for
// drilling down and for cleaning.
func (s RootSpec) Base() (string, bool) {
	if len(s.Paths) == 0 {
		return "", false
	}

	return s.Paths[0], true
}

// Errors returned by New and Subset.
var (
	ErrEmptyLabel       = errors.New("label must not be empty")
	ErrDuplicateLabel   = errors.New("duplicate label")
	ErrNoPaths          = errors.New("label has no paths")
	ErrRelativePath     = errors.New("path is not absolute")
	ErrUnknownProtected = errors.New("protected label is not configured")
	ErrUnknownLabel     = errors.New("unknown label")
)

// Catalog is an ordered, immutable set of RootSpecs.
type Catalog struct {
	specs     []RootSpec
	index     map[Label]int
	protected Label
}

// New validates specs and builds a Catalog preserving their order.
// protected may be empty, in which case no label is protected.
func New(specs []RootSpec, protected Label) (*Catalog, error) {
	catalog := &Catalog{
		specs:     make([]RootSpec, 0, len(specs)),
		index:     make(map[Label]int, len(specs)),
		protected: protected,
	}

	for _, spec := range specs {
		if spec.Label == "" {
			return nil, ErrEmptyLabel
		}

		if _, ok := catalog.index[spec.Label]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, spec.Label)
		}

		if len(spec.Paths) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoPaths, spec.Label)
		}

		paths := make([]string, 0, len(spec.Paths))

		for _, path := range spec.Paths {
			if !filepath.IsAbs(path) {
				return nil, fmt.Errorf("%w: %q (label %q)", ErrRelativePath, path, spec.Label)
			}

			paths = append(paths, filepath.Clean(path))
		}

		catalog.index[spec.Label] = len(catalog.specs)
		catalog.specs = append(catalog.specs, RootSpec{
			Label:     spec.Label,
			Paths:     paths,
			Protected: spec.Label == protected,
		})
	}

	if _, ok := catalog.index[protected]; protected != "" && !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtected, protected)
	}

	return catalog, nil
}

// Len returns the number of labels.
func (c *Catalog) Len() int {
	return len(c.specs)
}

// Labels returns the labels in catalog order.
func (c *Catalog) Labels() []Label {
	labels := make([]Label, len(c.specs))
	for i, spec := range c.specs {
		labels[i] = spec.Label
	}

	return labels
}

// Specs returns a copy of all specs in catalog order.
func (c *Catalog) Specs() []RootSpec {
	specs := make([]RootSpec, len(c.specs))
	for i, spec := range c.specs {
		spec.Paths = slices.Clone(spec.Paths)
		specs[i] = spec
	}

	return specs
}

// Spec looks up the spec for label.
func (c *Catalog) Spec(label Label) (RootSpec, bool) {
	i, ok := c.index[label]
	if !ok {
		return RootSpec{}, false
	}

	spec := c.specs[i]
	spec.Paths = slices.Clone(spec.Paths)

	return spec, true
}

// Paths returns all paths configured for label, or nil if it is unknown.
func (c *Catalog) Paths(label Label) []string {
	spec, _ := c.Spec(label)

	return spec.Paths
}

// Base returns the first path configured for label.
func (c *Catalog) Base(label Label) (string, bool) {
	i, ok := c.index[label]
	if !ok {
		return "", false
	}

	return c.specs[i].Base()
}

// Has reports whether label is configured.
func (c *Catalog) Has(label Label) bool {
	_, ok := c.index[label]

	return ok
}

// Protected returns the protected label, or "" if there is none.
func (c *Catalog) Protected() Label {
	return c.protected
}

// IsProtected reports whether label is the protected one.
func (c *Catalog) IsProtected(label Label) bool {
	return c.protected != "" && label == c.protected
}

// Subset returns a catalog restricted to labels, in catalog order.
// The protected designation is kept if the protected label is included.
func (c *Catalog) Subset(labels ...Label) (*Catalog, error) {
	wanted := make(map[Label]bool, len(labels))

	for _, label := range labels {
		if !c.Has(label) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
		}

		wanted[label] = true
	}

	specs := make([]RootSpec, 0, len(wanted))
	for _, spec := range c.specs {
		if wanted[spec.Label] {
			specs = append(specs, spec)
		}
	}

	protected := c.protected
	if !wanted[protected] {
		protected = ""
	}

	return New(specs, protected)
}

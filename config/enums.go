package config

import (
	yaml "gopkg.in/yaml.v3"
)

// Specification of requested output type.
// ENUM(site, zip, docset)
type OutputFmt int

// Ext returns the suffix attached to the output name.
func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtSite:
		return ""
	case OutputFmtZip:
		return ".zip"
	case OutputFmtDocset:
		return ".docset"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// Packed reports whether the output is a single container file rather
// than a directory tree.
func (o OutputFmt) Packed() bool {
	return o == OutputFmtZip
}

// MarshalYAML makes configuration dumps show the name, not the number.
func (o OutputFmt) MarshalYAML() (any, error) {
	return o.String(), nil
}

// UnmarshalYAML accepts the name in any case.
func (o *OutputFmt) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	v, err := ParseOutputFmt(name)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

package settings

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

func init() {
	// "key = value" without column alignment, the way configparser writes.
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

// Key and section names are matched case-insensitively by lookupSection and
// lookupKey rather than by ini's Insensitive option, which would lower-case
// every name on write.
var loadOptions = ini.LoadOptions{
	KeyValueDelimiters:      "=:",
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
}

func parseINI(path string, data []byte) (*ini.File, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return f, nil
}

func encodeINI(f *ini.File) ([]byte, error) {
	var b bytes.Buffer
	if _, err := f.WriteTo(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func lookupSection(f *ini.File, name string) *ini.Section {
	for _, sec := range f.Sections() {
		if strings.EqualFold(sec.Name(), name) {
			return sec
		}
	}
	sec, _ := f.NewSection(name)
	return sec
}

func lookupKey(sec *ini.Section, name string) (*ini.Key, bool) {
	for _, k := range sec.Keys() {
		if strings.EqualFold(k.Name(), name) {
			return k, true
		}
	}
	return nil, false
}

// setKey writes value under the canonical spelling of name, dropping any
// entry that differs only in case.
func setKey(sec *ini.Section, name, value string) error {
	for _, k := range sec.Keys() {
		if strings.EqualFold(k.Name(), name) && k.Name() != name {
			sec.DeleteKey(k.Name())
		}
	}
	if k, ok := lookupKey(sec, name); ok {
		k.SetValue(value)
		return nil
	}
	_, err := sec.NewKey(name, value)
	return err
}

package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/chase3718/patchthru/midi"
)

// -------------------- Records --------------------

// Record field names.
const (
	fieldName    = "name"
	fieldChannel = "channel"
	fieldBankMSB = "bank_msb"
	fieldBankLSB = "bank_lsb"
	fieldProgram = "program"
	fieldMIDI    = "midi"
)

// -------------------- Loading --------------------

// Load reads a patch list from a JSON or YAML file, chosen by extension.
func Load(path string) ([]Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read from %q: %w", path, err)
	}
	var patches []Patch
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		patches, err = ParseYAML(data)
	default:
		patches, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse patches from %q: %w", path, err)
	}
	return patches, nil
}

// ParseJSON decodes a JSON array of patch records. The enclosing brackets may
// be omitted, leaving a comma separated list of objects, optionally with a
// trailing comma.
func ParseJSON(data []byte) ([]Patch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != '[' {
		// bare object list, as older patch files were written
		data = bytes.TrimSuffix(data, []byte(","))
		data = append(append([]byte("["), data...), ']')
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return decodeRecords(records)
}

// ParseYAML decodes a YAML sequence of patch records.
func ParseYAML(data []byte) ([]Patch, error) {
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return decodeRecords(records)
}

// -------------------- Decoding --------------------

func decodeRecords(records []map[string]any) ([]Patch, error) {
	patches := make([]Patch, 0, len(records))
	for i, rec := range records {
		p, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i+1, err)
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func decodeRecord(rec map[string]any) (Patch, error) {
	var p Patch
	if rec == nil {
		return p, fmt.Errorf("empty record")
	}

	name, ok := rec[fieldName]
	if !ok || name == nil {
		return p, fmt.Errorf("missing %q", fieldName)
	}
	s, err := cast.ToStringE(name)
	if err != nil {
		return p, fmt.Errorf("%s: %w", fieldName, err)
	}
	p.Name = s

	if v, ok := rec[fieldChannel]; ok && v != nil {
		ch, err := toInt(v)
		if err != nil {
			return p, fmt.Errorf("%s: %w", fieldChannel, err)
		}
		p.Channel = midi.Channel(ch)
	}

	for _, f := range []struct {
		key string
		dst **uint8
	}{
		{fieldBankMSB, &p.BankMSB},
		{fieldBankLSB, &p.BankLSB},
		{fieldProgram, &p.Program},
	} {
		v, ok := rec[f.key]
		if !ok || v == nil {
			continue
		}
		n, err := toInt(v)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = Byte(clampByte(n))
	}

	if v, ok := rec[fieldMIDI]; ok && v != nil {
		s, err := cast.ToStringE(v)
		if err != nil {
			return p, fmt.Errorf("%s: %w", fieldMIDI, err)
		}
		raw, err := ParseHex(s)
		if err != nil {
			return p, fmt.Errorf("%s: %w", fieldMIDI, err)
		}
		if p.Raw, err = midi.Split(raw); err != nil {
			return p, fmt.Errorf("%s: %w", fieldMIDI, err)
		}
	}
	return p, nil
}

// toInt reads a numeric field. Numeric strings are decimal even with leading
// zeros ("08"); anything else, hex strings such as "0x10" included, goes
// through cast.
func toInt(v any) (int, error) {
	if s, ok := v.(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, nil
		}
	}
	return cast.ToIntE(v)
}

// -------------------- Raw MIDI --------------------

// ParseHex parses whitespace separated hex bytes such as "B0 07 64".
func ParseHex(s string) ([]byte, error) {
	var out []byte
	for _, tok := range strings.Fields(s) {
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid hex MIDI byte (00-FF)", tok)
		}
		out = append(out, byte(b))
	}
	return out, nil
}

func clampByte(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 0xFF {
		return 0xFF
	}
	return uint8(n)
}

// -------------------- Discovery --------------------

// Files lists the patch files (.json, .yaml, .yml) in dir.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

package patch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseJSON(t *testing.T) {
	data := `[
		{"name": "Grand", "bank_msb": 0, "bank_lsb": 1, "program": 4},
		{"name": "Drums", "channel": 9, "program": "0x10"},
		{"name": "Blank"}
	]`
	patches, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 3 {
		t.Fatalf("got %d patches", len(patches))
	}

	g := patches[0]
	if g.Name != "Grand" || *g.BankMSB != 0 || *g.BankLSB != 1 || *g.Program != 4 {
		t.Errorf("first patch = %+v", g)
	}
	d := patches[1]
	if d.Channel != 9 || d.Program == nil || *d.Program != 16 || d.BankMSB != nil {
		t.Errorf("second patch = %+v", d)
	}
	if len(patches[2].Messages()) != 0 {
		t.Errorf("blank patch sends %v", patches[2].Messages())
	}
}

func TestParseJSONWithoutBrackets(t *testing.T) {
	data := `{"name": "One", "program": 1},
{"name": "Two", "program": 2},
`
	patches, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 || patches[1].Name != "Two" {
		t.Fatalf("patches = %+v", patches)
	}
}

func TestParseJSONClamps(t *testing.T) {
	data := `[{"name": "Wild", "channel": 16, "bank_msb": -3, "bank_lsb": 999, "program": 128.7}]`
	patches, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	p := patches[0]
	if p.Channel != 0 {
		t.Errorf("channel = %d, want 0", p.Channel)
	}
	if *p.BankMSB != 0 || *p.BankLSB != 255 || *p.Program != 128 {
		t.Errorf("clamped fields = %d %d %d", *p.BankMSB, *p.BankLSB, *p.Program)
	}

	want := [][]byte{{0xB0, 0x00, 0x00}, {0xB0, 0x20, 0x7F}, {0xC0, 0x7F}}
	got := p.Messages()
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d = % X, want % X", i, []byte(got[i]), want[i])
		}
	}
}

func TestParseNumericStrings(t *testing.T) {
	data := `[{"name": "Str", "channel": "09", "bank_msb": "0x10", "bank_lsb": " 010 ", "program": "08"}]`
	patches, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	p := patches[0]
	if p.Channel != 9 || *p.BankMSB != 16 || *p.BankLSB != 10 || *p.Program != 8 {
		t.Errorf("fields = %d %d %d %d, want 9 16 10 8", p.Channel, *p.BankMSB, *p.BankLSB, *p.Program)
	}
}

func TestParseRawMIDI(t *testing.T) {
	patches, err := ParseJSON([]byte(`[{"name": "Vol", "program": 3, "midi": "B0 07 64 f0 43 10 f7"}]`))
	if err != nil {
		t.Fatal(err)
	}
	msgs := patches[0].Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if !bytes.Equal(msgs[1], []byte{0xB0, 0x07, 0x64}) {
		t.Errorf("raw message = % X", []byte(msgs[1]))
	}
	if !bytes.Equal(msgs[2], []byte{0xF0, 0x43, 0x10, 0xF7}) {
		t.Errorf("raw sysex = % X", []byte(msgs[2]))
	}

	// bytes are sent as written, so clock inside a sysex cannot be honoured
	_, err = ParseJSON([]byte(`[{"name": "x", "midi": "F0 01 F8 02 F7"}]`))
	if err == nil || !strings.Contains(err.Error(), "real-time byte") {
		t.Errorf("real-time byte inside sysex: err = %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing name", `[{"program": 1}]`, `patch 1: missing "name"`},
		{"bad program", `[{"name": "a"}, {"name": "b", "program": "loud"}]`, "patch 2: program"},
		{"bad channel", `[{"name": "a", "channel": [1]}]`, "patch 1: channel"},
		{"bad hex", `[{"name": "a", "midi": "B0 ZZ 01"}]`, `"ZZ" is not a valid hex MIDI byte`},
		{"truncated raw", `[{"name": "a", "midi": "B0 07"}]`, "incomplete"},
		{"unsynced raw", `[{"name": "a", "midi": "07 64"}]`, "invalid"},
		{"not json", `{"name": `, "invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	data := `
- name: Strings
  bank_msb: 0x05
  program: 48
- name: Lead
  channel: 2
  midi: "B2 4A 40"
`
	patches, err := ParseYAML([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 {
		t.Fatalf("got %d patches", len(patches))
	}
	if *patches[0].BankMSB != 5 || *patches[0].Program != 48 {
		t.Errorf("first patch = %+v", patches[0])
	}
	if patches[1].Channel != 2 || len(patches[1].Raw) != 1 {
		t.Errorf("second patch = %+v", patches[1])
	}
}

func TestLoadAndFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	jsonPath := write("live.json", `{"name": "A", "program": 1}`)
	yamlPath := write("studio.yml", "- name: B\n  program: 2\n")
	write("notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	for path, name := range map[string]string{jsonPath: "A", yamlPath: "B"} {
		patches, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if len(patches) != 1 || patches[0].Name != name {
			t.Errorf("Load(%s) = %+v", path, patches)
		}
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != jsonPath || files[1] != yamlPath {
		t.Errorf("Files = %v", files)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil || !strings.Contains(err.Error(), "cannot read from") {
		t.Errorf("missing file error = %v", err)
	}
}

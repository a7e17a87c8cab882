package yamlutil_test

// Notes:
// - ErrInputTooLarge is tested by shrinking MaxInputSize; that test mutates a
//   package variable and therefore does not run in parallel.

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/pandoc-svgbob/internal/yamlutil"
)

type testConfig struct {
	Binary  string  `yaml:"binary"`
	Scale   float64 `yaml:"scale"`
	Enabled bool    `yaml:"enabled"`
}

// ---------------------------------------------------------------------------
// TestUnmarshal - Parses YAML into Go structs
// ---------------------------------------------------------------------------

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		check   func(t *testing.T, v any)
	}{
		{
			name: "valid YAML",
			data: []byte("binary: svgbob_cli\nscale: 1.5\nenabled: true"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Binary != "svgbob_cli" {
					t.Errorf("Binary = %q, want %q", cfg.Binary, "svgbob_cli")
				}
				if cfg.Scale != 1.5 {
					t.Errorf("Scale = %v, want %v", cfg.Scale, 1.5)
				}
				if !cfg.Enabled {
					t.Error("Enabled = false, want true")
				}
			},
		},
		{
			name: "unknown field is ignored",
			data: []byte("binary: svgbob\nextra: 1"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				if v.(*testConfig).Binary != "svgbob" {
					t.Errorf("Binary = %q, want svgbob", v.(*testConfig).Binary)
				}
			},
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("binary: x"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
		{
			name:    "invalid YAML syntax",
			data:    []byte("binary: [unclosed"),
			dest:    &testConfig{},
			wantErr: errors.New("yamlutil:"), // partial match
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.Unmarshal(tt.data, tt.dest)
			checkErr(t, err, tt.wantErr)
			if err == nil && tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Parses YAML and rejects unknown fields
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name: "known fields only",
			data: []byte("binary: svgbob_cli\nscale: 2"),
		},
		{
			name:    "unknown field causes error",
			data:    []byte("binary: svgbob\nbinry: typo"),
			wantErr: errors.New("yamlutil:"),
		},
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: yamlutil.ErrNilData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, &testConfig{})
			checkErr(t, err, tt.wantErr)
		})
	}
}

func TestUnmarshal_InputTooLarge(t *testing.T) {
	orig := yamlutil.MaxInputSize
	defer func() { yamlutil.MaxInputSize = orig }()
	yamlutil.MaxInputSize = 8

	err := yamlutil.Unmarshal([]byte("binary: svgbob_cli"), &testConfig{})
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Fatalf("error = %v, want ErrInputTooLarge", err)
	}
}

// ---------------------------------------------------------------------------
// TestSplitFrontMatter - Markdown front matter extraction
// ---------------------------------------------------------------------------

func TestSplitFrontMatter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantFront string
		wantBody  string
		wantOK    bool
	}{
		{
			name:      "dash delimited",
			input:     "---\nsvgbob:\n  scale: 2\n---\n# Title\n",
			wantFront: "svgbob:\n  scale: 2\n",
			wantBody:  "# Title\n",
			wantOK:    true,
		},
		{
			name:      "dot terminated",
			input:     "---\ntitle: x\n...\nbody",
			wantFront: "title: x\n",
			wantBody:  "body",
			wantOK:    true,
		},
		{
			name:      "CRLF line endings",
			input:     "---\r\ntitle: x\r\n---\r\nbody",
			wantFront: "title: x\r\n",
			wantBody:  "body",
			wantOK:    true,
		},
		{
			name:      "empty front matter",
			input:     "---\n---\nbody",
			wantFront: "",
			wantBody:  "body",
			wantOK:    true,
		},
		{
			name:     "no front matter",
			input:    "# Title\n---\n",
			wantBody: "# Title\n---\n",
		},
		{
			name:     "unterminated",
			input:    "---\ntitle: x\n",
			wantBody: "---\ntitle: x\n",
		},
		{
			name:      "byte order mark",
			input:     "\ufeff---\na: 1\n---\nbody",
			wantFront: "a: 1\n",
			wantBody:  "body",
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			front, body, ok := yamlutil.SplitFrontMatter([]byte(tt.input))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if string(front) != tt.wantFront {
				t.Errorf("front = %q, want %q", front, tt.wantFront)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func checkErr(t *testing.T, err, want error) {
	t.Helper()
	if want == nil {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if errors.Is(err, want) {
		return
	}
	if !strings.Contains(err.Error(), want.Error()) {
		t.Fatalf("error = %q, want containing %q", err, want)
	}
}

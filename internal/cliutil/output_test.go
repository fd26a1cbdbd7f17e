package cliutil

import (
	"bytes"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input     string
		expected  Format
		expectErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"JSON", FormatJSON, false},
		{"  yaml  ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.expectErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.expectErr)
			}
			if !tt.expectErr && got != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

type testTableRenderer struct {
	headers []string
	rows    [][]string
}

func (t testTableRenderer) Headers() []string { return t.headers }
func (t testTableRenderer) Rows() [][]string  { return t.rows }

func TestPrintOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}}}

	if err := PrintOutput(&buf, FormatJSON, []string{"foo", "bar"}, false, "no items", renderer); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("foo")) || !bytes.Contains(buf.Bytes(), []byte("bar")) {
		t.Errorf("PrintOutput() = %q, missing expected data", buf.String())
	}
}

func TestPrintOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}}}

	if err := PrintOutput(&buf, FormatYAML, []string{"foo", "bar"}, false, "no items", renderer); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}

	expected := "- foo\n- bar\n"
	if buf.String() != expected {
		t.Errorf("PrintOutput() = %q, want %q", buf.String(), expected)
	}
}

func TestPrintOutput_Table_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: nil}

	if err := PrintOutput(&buf, FormatTable, nil, true, "No locks held.", renderer); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if buf.String() != "No locks held.\n" {
		t.Errorf("PrintOutput() = %q, want %q", buf.String(), "No locks held.\n")
	}
}

func TestPrintOutput_Table_WithData(t *testing.T) {
	var buf bytes.Buffer
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}, {"bar"}}}

	if err := PrintOutput(&buf, FormatTable, nil, false, "No locks held.", renderer); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("PrintOutput() returned empty output for table")
	}
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	if err := SimpleTable(&buf, [][2]string{{"GROUP", "orders"}, {"ID", "42"}}); err != nil {
		t.Fatalf("SimpleTable() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("orders")) || !bytes.Contains(buf.Bytes(), []byte("42")) {
		t.Errorf("SimpleTable() = %q, missing expected data", buf.String())
	}
}

package refmodel

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
)

//go:embed schema/reference-table-v1.schema.json
var tableSchemaJSON []byte

var (
	tableSchemaOnce sync.Once
	tableSchema     *jsonschema.Schema
	tableSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	tableSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		const name = "reference-table-v1.schema.json"
		if err := compiler.AddResource(name, bytes.NewReader(tableSchemaJSON)); err != nil {
			tableSchemaErr = err
			return
		}
		tableSchema, tableSchemaErr = compiler.Compile(name)
	})
	return tableSchema, tableSchemaErr
}

// Marshal renders the table as a JSON object with keys in first-occurrence
// order. The output is byte-stable for a given table, which keeps cached
// and versioned reference files diffable.
func (t *Table) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, tok := range t.tokens {
		key, _ := json.Marshal(tok)
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.WriteString(strconv.FormatFloat(t.probs[tok], 'g', -1, 64))
		if i < len(t.tokens)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

// Fingerprint returns the hex-encoded BLAKE2b-256 digest of the table's
// canonical serialization. Result stores record it so every emitted row is
// traceable to the exact model bytes it was computed against.
func (t *Table) Fingerprint() string {
	sum := blake2b.Sum256(t.Marshal())
	return hex.EncodeToString(sum[:])
}

// Save writes the table to path as JSON, creating parent directories.
func Save(t *Table, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("refmodel: create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, t.Marshal(), 0o644); err != nil {
		return fmt.Errorf("refmodel: write table: %w", err)
	}
	return nil
}

// Load reads a persisted reference table, validating it against the
// embedded JSON Schema. Token order in the file is preserved so a
// save/load round trip is byte-identical.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refmodel: read table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a reference table blob.
func Parse(data []byte) (*Table, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("refmodel: compile schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	// Re-decode with a token scanner to preserve key order; the schema pass
	// above already guaranteed a flat object of positive numbers.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	var order []string
	probs := make(map[string]float64)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string key", ErrMalformedTable)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric probability for %q", ErrMalformedTable, key)
		}
		p, err := num.Float64()
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("%w: probability for %q must be a float > 0", ErrMalformedTable, key)
		}
		if _, dup := probs[key]; !dup {
			order = append(order, key)
		}
		probs[key] = p
	}

	return fromPairs(order, probs), nil
}

// Package answerkey holds the correct answers for knowledge quizzes and the
// declared aptitude category order. A Key is loaded once and never mutated.
package answerkey

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://answer-key.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

type document struct {
	Aptitude struct {
		Categories []string `json:"categories"`
	} `json:"aptitude"`
	Initial map[string]string                       `json:"initial"`
	Final   map[string]string                       `json:"final"`
	Units   map[string]map[string]map[string]string `json:"units"`
}

type Key struct {
	categories []string
	quizzes    map[quiz.Type]map[string]string
	units      map[string]map[quiz.UnitKind]map[string]string
}

// Load reads and validates the answer-key document at path.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("answerkey: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates data against the answer-key schema and builds a Key.
func Parse(data []byte) (*Key, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("answerkey: invalid JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("answerkey: schema validation failed: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("answerkey: decode: %w", err)
	}

	k := &Key{
		categories: append([]string(nil), doc.Aptitude.Categories...),
		quizzes:    map[quiz.Type]map[string]string{},
		units:      map[string]map[quiz.UnitKind]map[string]string{},
	}
	if doc.Initial != nil {
		k.quizzes[quiz.TypePreAssessment] = doc.Initial
	}
	if doc.Final != nil {
		k.quizzes[quiz.TypePostAssessment] = doc.Final
	}
	for unitID, kinds := range doc.Units {
		byKind := map[quiz.UnitKind]map[string]string{}
		for kind, answers := range kinds {
			byKind[quiz.UnitKind(kind)] = answers
		}
		k.units[unitID] = byKind
	}
	return k, nil
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("answerkey: parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("answerkey: add schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Categories returns the declared aptitude category order.
func (k *Key) Categories() []string {
	return append([]string(nil), k.categories...)
}

// For returns a copy of the answer key for a knowledge quiz.
// unitID and kind are only consulted for unit quizzes.
func (k *Key) For(typ quiz.Type, unitID string, kind quiz.UnitKind) (map[string]string, bool) {
	var src map[string]string
	if typ == quiz.TypeUnit {
		kinds, ok := k.units[unitID]
		if !ok {
			return nil, false
		}
		src, ok = kinds[kind]
		if !ok {
			return nil, false
		}
	} else {
		var ok bool
		if src, ok = k.quizzes[typ]; !ok {
			return nil, false
		}
	}
	out := make(map[string]string, len(src))
	for q, a := range src {
		out[q] = a
	}
	return out, true
}

// Units lists the unit ids that have at least one configured quiz.
func (k *Key) Units() []string {
	out := make([]string, 0, len(k.units))
	for id := range k.units {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

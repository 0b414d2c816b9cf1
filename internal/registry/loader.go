// Package registry loads SemanticTable and SemanticFlow definitions from
// on-disk YAML into a *planner.Registry, and keeps that registry fresh
// with a periodically reloading holder (refresher.go).
package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v4"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/semaflow/semaflow/internal/planner"
)

// APIVersion is the only apiVersion LoadDirectory accepts on a wrapped
// document. Legacy bare documents (no apiVersion/kind/metadata) skip
// this check entirely — see loadFlowFile's yaml.v3 fallback.
const APIVersion = "semaflow/v1"

const (
	kindSemanticTable = "SemanticTable"
	kindSemanticFlow  = "SemanticFlow"
)

type docMeta struct {
	Name string `yaml:"name"`
}

type tableDoc struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   docMeta  `yaml:"metadata"`
	Spec       rawTable `yaml:"spec"`
}

type flowDoc struct {
	APIVersion string  `yaml:"apiVersion"`
	Kind       string  `yaml:"kind"`
	Metadata   docMeta `yaml:"metadata"`
	Spec       rawFlow `yaml:"spec"`
}

// LoadDirectory reads every *.yaml/*.yml file in dir/tables and
// dir/flows and assembles a *planner.Registry. It does not validate the
// result — callers run planner.ValidateRegistry themselves so they can
// choose strict-vs-warn handling (SPEC_FULL.md §10.3's
// SEMAFLOW_VALIDATION_MODE).
func LoadDirectory(dir string) (*planner.Registry, error) {
	tables, err := loadTables(filepath.Join(dir, "tables"))
	if err != nil {
		return nil, err
	}
	flows, err := loadFlows(filepath.Join(dir, "flows"))
	if err != nil {
		return nil, err
	}
	return planner.NewRegistry(tables, flows), nil
}

func loadTables(dir string) ([]*planner.SemanticTable, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}

	var tables []*planner.SemanticTable
	for _, path := range files {
		table, err := loadTableFile(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func loadTableFile(path string) (*planner.SemanticTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc tableDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validateDocument(path, doc.APIVersion, doc.Kind, kindSemanticTable); err != nil {
		return nil, err
	}
	stem := fileStem(path)
	if doc.Metadata.Name != stem {
		return nil, fmt.Errorf("%s: metadata.name %q does not match file name %q", path, doc.Metadata.Name, stem)
	}

	return buildTable(doc.Metadata.Name, doc.Spec)
}

func loadFlows(dir string) ([]*planner.SemanticFlow, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}

	var flows []*planner.SemanticFlow
	for _, path := range files {
		flow, err := loadFlowFile(path)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

// loadFlowFile tries the wrapped apiVersion/kind/metadata/spec document
// shape first (go.yaml.in/yaml/v4, strict fields). If the document has
// no kind set at all — a bare flow definition predating the wrapper
// convention — it falls back to decoding the file directly into rawFlow
// with gopkg.in/yaml.v3, matching whatever legacy flow files a registry
// carries over from before the wrapper was introduced.
func loadFlowFile(path string) (*planner.SemanticFlow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc flowDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err == nil && doc.Kind != "" {
		if err := validateDocument(path, doc.APIVersion, doc.Kind, kindSemanticFlow); err != nil {
			return nil, err
		}
		stem := fileStem(path)
		if doc.Metadata.Name != stem {
			return nil, fmt.Errorf("%s: metadata.name %q does not match file name %q", path, doc.Metadata.Name, stem)
		}
		return buildFlow(doc.Metadata.Name, doc.Spec)
	}

	var raw rawFlowLegacy
	if err := yamlv3.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	stem := fileStem(path)
	if raw.Name != "" && raw.Name != stem {
		return nil, fmt.Errorf("%s: name %q does not match file name %q", path, raw.Name, stem)
	}
	return buildFlowLegacy(stem, raw)
}

func validateDocument(path, apiVersion, kind, expectedKind string) error {
	if apiVersion != APIVersion {
		return fmt.Errorf("%s: unsupported apiVersion %q (expected %q)", path, apiVersion, APIVersion)
	}
	if kind != expectedKind {
		return fmt.Errorf("%s: unexpected kind %q (expected %q)", path, kind, expectedKind)
	}
	return nil
}

func yamlFiles(dir string) ([]string, error) {
	if !dirExists(dir) {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
}

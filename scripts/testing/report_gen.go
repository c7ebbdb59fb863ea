// Command report_gen merges `go test -json` output with the annotation block
// written above each test (TestPurpose, Scope, Security, Expected, Test Case
// ID) and renders JSON and Markdown reports.
//
//	go test -json ./... > test.json
//	go run ./scripts/testing -input test.json -out-json report.json -out-md report.md
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// TestMetadata holds info parsed from Go source comments
type TestMetadata struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Package    string `json:"package"`
	Category   string `json:"category"`
}

// GoTestEvent represents a single event from 'go test -json'
type GoTestEvent struct {
	Action  string  `json:"Action"`
	Package string  `json:"Package"`
	Test    string  `json:"Test"`
	Elapsed float64 `json:"Elapsed"`
	Output  string  `json:"Output"`
}

// FinalTestResult is the merged result for a single test
type FinalTestResult struct {
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Elapsed     float64      `json:"elapsed_seconds"`
	Package     string       `json:"package"`
	Failure     string       `json:"failure_reason,omitempty"`
	Annotations TestMetadata `json:"annotations"`
}

// ReportSummary holds top-level stats
type ReportSummary struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Total       int               `json:"total"`
	Passed      int               `json:"passed"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"`
	Results     []FinalTestResult `json:"results"`
}

var annotationKeys = []string{"TestPurpose:", "Scope:", "Security:", "Expected:", "Test Case ID:"}

func main() {
	inputPath := flag.String("input", "", "Path to go test -json output file")
	outputJSON := flag.String("out-json", "", "Path for output JSON report")
	outputMD := flag.String("out-md", "", "Path for output Markdown report")
	title := flag.String("title", "Test Report", "Report title")
	category := flag.String("category", "", "Only include this category")
	flag.Parse()

	if *inputPath == "" || *outputJSON == "" || *outputMD == "" {
		fmt.Println("Usage: report_gen -input <json_file> -out-json <out_json> -out-md <out_md>")
		os.Exit(1)
	}

	module, err := modulePath("go.mod")
	if err != nil {
		fmt.Printf("Error reading go.mod: %v\n", err)
		os.Exit(1)
	}

	results, err := parseTestOutput(*inputPath, scanMetadata(module))
	if err != nil {
		fmt.Printf("Error reading test output: %v\n", err)
		os.Exit(1)
	}
	if *category != "" {
		results = slices.DeleteFunc(results, func(r FinalTestResult) bool {
			return r.Annotations.Category != *category
		})
	}

	summary := generateSummary(results)
	if err := saveJSON(summary, *outputJSON); err != nil {
		fmt.Printf("Error writing JSON report: %v\n", err)
		os.Exit(1)
	}
	if err := saveMarkdown(summary, *outputMD, *title); err != nil {
		fmt.Printf("Error writing Markdown report: %v\n", err)
		os.Exit(1)
	}

	// Non-zero exit keeps CI gates meaningful.
	if summary.Failed > 0 {
		fmt.Printf("\nTest Reporting: %d tests failed.\n", summary.Failed)
		os.Exit(1)
	}
}

func modulePath(goMod string) (string, error) {
	data, err := os.ReadFile(goMod)
	if err != nil {
		return "", err
	}
	for line := range bytes.Lines(data) {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(string(line)), "module "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", fmt.Errorf("no module directive in %s", goMod)
}

func scanMetadata(module string) map[string]TestMetadata {
	metadataMap := make(map[string]TestMetadata)
	fset := token.NewFileSet()

	filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && (strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor" || d.Name() == ".git") {
			return filepath.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(path, "_test.go") {
			return nil
		}

		node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}

		pkgPath := module
		if dir := filepath.ToSlash(filepath.Dir(path)); dir != "." {
			pkgPath += "/" + dir
		}

		for _, decl := range node.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !strings.HasPrefix(fn.Name.Name, "Test") || fn.Name.Name == "TestMain" {
				continue
			}
			meta := TestMetadata{
				Name:     fn.Name.Name,
				Package:  pkgPath,
				Category: determineCategory(strings.TrimPrefix(pkgPath, module+"/")),
			}
			if fn.Doc != nil {
				parseAnnotations(fn.Doc, &meta)
			}
			metadataMap[pkgPath+"."+fn.Name.Name] = meta
		}
		return nil
	})

	return metadataMap
}

func parseAnnotations(doc *ast.CommentGroup, meta *TestMetadata) {
	for _, line := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(line.Text, "//"))
		for _, key := range annotationKeys {
			value, ok := strings.CutPrefix(text, key)
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch key {
			case "TestPurpose:":
				meta.Purpose = value
			case "Scope:":
				meta.Scope = value
			case "Security:":
				meta.Security = value
			case "Expected:":
				meta.Expected = value
			case "Test Case ID:":
				meta.TestCaseID = value
			}
		}
	}
}

func determineCategory(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/session"), strings.HasPrefix(rel, "internal/identity"):
		return "AuthN"
	case strings.HasPrefix(rel, "internal/authz"):
		return "AuthZ"
	case strings.HasPrefix(rel, "internal/tenant"):
		return "Tenant"
	case strings.HasPrefix(rel, "internal/store"):
		return "Store"
	case strings.HasPrefix(rel, "internal/events"), strings.HasPrefix(rel, "internal/notify"):
		return "Events"
	case strings.HasPrefix(rel, "internal/transport/http"):
		return "API"
	case strings.HasPrefix(rel, "internal/observability"), strings.HasPrefix(rel, "internal/audit"):
		return "Observability"
	}
	return "Other"
}

func parseTestOutput(path string, meta map[string]TestMetadata) ([]FinalTestResult, error) {
	states := make(map[string]*FinalTestResult, len(meta))
	for key, m := range meta {
		states[key] = &FinalTestResult{Name: m.Name, Package: m.Package, Status: "not run", Annotations: m}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var event GoTestEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil || event.Test == "" {
			continue
		}

		key := event.Package + "." + event.Test
		res, ok := states[key]
		if !ok {
			// Subtests inherit the parent's annotations.
			parent, _, _ := strings.Cut(event.Test, "/")
			ann := meta[event.Package+"."+parent]
			ann.Name = event.Test
			ann.Package = event.Package
			if ann.Category == "" {
				ann.Category = "Other"
			}
			res = &FinalTestResult{Name: event.Test, Package: event.Package, Annotations: ann}
			states[key] = res
		}

		switch event.Action {
		case "pass", "fail":
			res.Status = event.Action
			res.Elapsed = event.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			if res.Status == "fail" || res.Status == "" || res.Status == "not run" {
				res.Failure += event.Output
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	list := make([]FinalTestResult, 0, len(states))
	for _, v := range states {
		if v.Status != "fail" {
			v.Failure = ""
		}
		list = append(list, *v)
	}
	slices.SortFunc(list, func(a, b FinalTestResult) int {
		if c := strings.Compare(a.Package, b.Package); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return list, nil
}

func generateSummary(results []FinalTestResult) ReportSummary {
	summary := ReportSummary{GeneratedAt: time.Now(), Results: results}
	for _, r := range results {
		summary.Total++
		switch r.Status {
		case "pass":
			summary.Passed++
		case "fail":
			summary.Failed++
		case "skip":
			summary.Skipped++
		}
	}
	return summary
}

func saveJSON(summary ReportSummary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func saveMarkdown(summary ReportSummary, path, title string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Intellitrader Portal %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	status := "PASSED"
	if summary.Failed > 0 {
		status = "FAILED"
	}
	fmt.Fprintf(&sb, "**Status:** %s  \n", status)
	fmt.Fprintf(&sb, "**Total:** %d | **Passed:** %d | **Failed:** %d | **Skipped:** %d\n\n",
		summary.Total, summary.Passed, summary.Failed, summary.Skipped)

	byCategory := map[string][]FinalTestResult{}
	for _, r := range summary.Results {
		byCategory[r.Annotations.Category] = append(byCategory[r.Annotations.Category], r)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	for _, c := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", c)
		sb.WriteString("| ID | Test | Status | Purpose | Expected |\n|---|---|---|---|---|\n")
		for _, r := range byCategory[c] {
			fmt.Fprintf(&sb, "| %s | `%s` | %s | %s | %s |\n",
				r.Annotations.TestCaseID, r.Name, r.Status,
				escapeCell(r.Annotations.Purpose), escapeCell(r.Annotations.Expected))
		}
		sb.WriteString("\n")
	}

	var failures []FinalTestResult
	for _, r := range summary.Results {
		if r.Status == "fail" {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, r := range failures {
			fmt.Fprintf(&sb, "### %s.%s\n\n```\n%s```\n\n", r.Package, r.Name, r.Failure)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

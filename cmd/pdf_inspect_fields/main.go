package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pdf"
)

var (
	outputFormat = pflag.String("format", "text", "Output format: text, json")
	showText     = pflag.Bool("text", false, "Also print the extracted page text")
	help         = pflag.Bool("help", false, "Show help message")
)

// InspectionResult is the outcome of inspecting one template
type InspectionResult struct {
	FilePath string      `json:"file_path"`
	Success  bool        `json:"success"`
	Pages    int         `json:"pages"`
	Fields   []pdf.Field `json:"fields"`
	Text     string      `json:"text,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func main() {
	pflag.Usage = printHelp
	pflag.Parse()

	if *help {
		printHelp()
		return
	}

	if pflag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage(os.Stderr)
		os.Exit(1)
	}

	result, err := inspectFile(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !*showText {
		result.Text = ""
	}

	if err := outputResult(os.Stdout, result, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF Inspect Fields - list the form fields of a PDF template")
	fmt.Println()
	fmt.Println("Use it to check the field names of Mod.02-ES.pdf before rendering the")
	fmt.Println("official form. Field names are matched exactly, accents included.")
	fmt.Println()
	printUsage(os.Stdout)
	fmt.Println()
	fmt.Println("OPTIONS:")
	pflag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_inspect_fields templates/Mod.02-ES.pdf")
	fmt.Println("  pdf_inspect_fields --format json templates/Mod.02-ES.pdf")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_inspect_fields [OPTIONS] <pdf_file>")
}

func inspectFile(path string) (*InspectionResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	result := &InspectionResult{FilePath: absPath}
	inspection, err := pdf.Inspect(data)
	if err != nil {
		// reported in the result, not as a failure of the tool
		result.Error = err.Error()
		return result, nil
	}

	result.Success = true
	result.Pages = inspection.Pages
	result.Fields = inspection.Fields
	result.Text = inspection.Text
	return result, nil
}

func outputResult(w io.Writer, result *InspectionResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		outputText(w, result)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result *InspectionResult) {
	if !result.Success {
		fmt.Fprintf(w, "Inspection failed: %s\n", result.Error)
		return
	}

	fmt.Fprintf(w, "%s: %d page(s)\n", result.FilePath, result.Pages)
	if len(result.Fields) == 0 {
		fmt.Fprintln(w, "No form fields detected in the PDF")
	} else {
		fmt.Fprintf(w, "%d form field(s)\n\n", len(result.Fields))
	}

	for i, field := range result.Fields {
		fmt.Fprintf(w, "[%d] %s\n", i+1, field.Name)
		fmt.Fprintf(w, "    Type: %s\n", field.Type)
		if field.ID != "" {
			fmt.Fprintf(w, "    Object: %s\n", field.ID)
		}
		if field.Value != "" {
			fmt.Fprintf(w, "    Value: %s\n", field.Value)
		}
		if field.ReadOnly {
			fmt.Fprintln(w, "    ReadOnly")
		}
		if field.MaxLen > 0 {
			fmt.Fprintf(w, "    Max Length: %d\n", field.MaxLen)
		}
	}

	if result.Text != "" {
		fmt.Fprintf(w, "\nText:\n%s\n", result.Text)
	}
}

package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/aqlanhadi/rentrecon/extractor/ledger"
	"github.com/aqlanhadi/rentrecon/extractor/report"
	"github.com/aqlanhadi/rentrecon/reconcile"
	log "github.com/sirupsen/logrus"
)

// ReportRows turns report content into text rows. PDFs are rendered row by
// row; anything else is read as plain text. Binary content that is neither
// yields no rows.
func ReportRows(reader io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", filename, err)
	}

	if common.IsPDF(data) {
		log.WithField("file", filename).Debug("rendering report PDF")
		rows, err := common.ExtractRowsFromPDFReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to render report %s: %w", filename, err)
		}
		return rows, nil
	}

	if !utf8.Valid(data) {
		log.WithField("file", filename).Warn("report is neither PDF nor text, treating as empty")
		return nil, nil
	}
	return common.SplitLines(string(data)), nil
}

// ProcessReport reads and extracts a report.
func ProcessReport(reader io.Reader, filename string, cfg report.Config) (*report.Result, error) {
	rows, err := ReportRows(reader, filename)
	if err != nil {
		return nil, err
	}
	return report.Extract(filename, rows, cfg)
}

// ProcessLedger parses a ledger CSV.
func ProcessLedger(reader io.Reader, filename string, cfg ledger.Config, filter *common.DateRange) (*ledger.Result, error) {
	return ledger.Parse(reader, filepath.Base(filename), cfg, filter)
}

// ProcessFiles runs a reconciliation over a ledger file and a report file.
// An empty ledgerPath reconciles the report on its own.
func ProcessFiles(ledgerPath, reportPath string, opts reconcile.Options) (*reconcile.Result, error) {
	reportFile, err := os.Open(reportPath)
	if err != nil {
		return nil, err
	}
	defer reportFile.Close()

	rows, err := ReportRows(reportFile, reportPath)
	if err != nil {
		return nil, err
	}

	in := reconcile.Input{
		ReportSource: reportPath,
		ReportRows:   rows,
	}
	if ledgerPath != "" {
		ledgerFile, err := os.Open(ledgerPath)
		if err != nil {
			return nil, err
		}
		defer ledgerFile.Close()
		in.Ledger = ledgerFile
		in.LedgerSource = filepath.Base(ledgerPath)
	}

	log.WithFields(log.Fields{"ledger": ledgerPath, "report": reportPath}).Info("reconciling")
	return reconcile.Run(in, opts)
}

// ReportText renders a report file to plain text rows, for inspecting what the
// extractor sees.
func ReportText(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReportRows(file, path)
}

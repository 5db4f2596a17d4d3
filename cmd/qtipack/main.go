// Command qtipack turns a CSV question sheet into a QTI package and prints
// the contents of existing packages.
//
//	qtipack build -in rows.csv [-meta quiz.yaml] -out quiz.zip [-fib multiple_blanks] [-ids uuid|ulid|sequence]
//	qtipack preview -in quiz.zip|questions.xml
package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/quizport/internal/config"
	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/logger"
	"github.com/mind-engage/quizport/internal/qti/export"
	"github.com/mind-engage/quizport/internal/qti/parser"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/validate"
)

var errUsage = errors.New("usage: qtipack build|preview [flags]")

// errBlocked means diagnostics were printed and nothing was written.
var errBlocked = errors.New("export blocked by validation errors")

func main() {
	if err := logger.Initialize(config.LoggerConfig{Level: "warn"}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "qtipack:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "build":
		return runBuild(args[1:], stdout, stderr)
	case "preview":
		return runPreview(args[1:], stdout)
	}
	return errUsage
}

// quizMeta is the optional YAML sidecar for a sheet.
type quizMeta struct {
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	ScoringPolicy   string `yaml:"scoring_policy"`
	QuizType        string `yaml:"quiz_type"`
	AllowedAttempts int    `yaml:"allowed_attempts"`
	ShuffleAnswers  bool   `yaml:"shuffle_answers"`
	FIBVariant      string `yaml:"fib_variant"`
}

func readMeta(path string) (quizMeta, error) {
	var m quizMeta
	if path == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func readRows(r io.Reader) ([]ingest.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([]ingest.Row, len(records))
	for i, rec := range records {
		rows[i] = ingest.Row(rec)
	}
	return rows, nil
}

func runBuild(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "CSV file with one question per row")
	metaPath := fs.String("meta", "", "optional YAML file with title, description and quiz settings")
	out := fs.String("out", "", "zip file to write")
	fib := fs.String("fib", "", "fill-in-the-blank variant: short_answer or multiple_blanks")
	scheme := fs.String("ids", string(ids.SchemeUUID), "identifier scheme: uuid, ulid or sequence")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("build needs -in and -out")
	}
	log := logger.Get().With(zap.String("in", *in))

	meta, err := readMeta(*metaPath)
	if err != nil {
		return err
	}
	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	rows, err := readRows(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", *in, err)
	}

	batch, diags, err := validate.Sheet(rows)
	if err != nil {
		return err
	}
	for _, s := range batch.Skipped {
		log.Debug("row skipped", zap.Int("row", s.Row), zap.String("reason", s.Reason))
	}

	title := meta.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	}
	doc := question.QuizDocument{Title: title, Description: meta.Description, Questions: batch.Records()}

	opts := export.Options{
		ScoringPolicy:   meta.ScoringPolicy,
		QuizType:        meta.QuizType,
		AllowedAttempts: meta.AllowedAttempts,
		ShuffleAnswers:  meta.ShuffleAnswers,
		FIBVariant:      export.FIBVariant(meta.FIBVariant),
	}
	if *fib != "" {
		opts.FIBVariant = export.FIBVariant(*fib)
	}
	switch opts.FIBVariant {
	case "", export.FIBShortAnswer, export.FIBMultipleBlanks:
	default:
		return fmt.Errorf("unknown fib variant %q", opts.FIBVariant)
	}
	switch ids.Scheme(*scheme) {
	case ids.SchemeUUID, ids.SchemeULID, ids.SchemeSequence:
	default:
		return fmt.Errorf("unknown id scheme %q", *scheme)
	}

	for _, d := range diags {
		fmt.Fprintln(stderr, d)
	}

	pkg, err := export.Build(doc, ids.FactoryFor(ids.Scheme(*scheme))(), opts)
	if err != nil {
		var blocked *export.BlockedError
		if errors.As(err, &blocked) {
			for _, d := range blocked.Diagnostics {
				fmt.Fprintln(stderr, d)
			}
			return errBlocked
		}
		return err
	}
	zipped, err := export.Zip(pkg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, zipped, 0o644); err != nil {
		return err
	}
	log.Info("package written", zap.String("out", *out), zap.String("quiz_id", pkg.QuizID))
	fmt.Fprintf(stdout, "wrote %s: %d question(s), %d row(s) skipped, quiz %s\n", *out, len(doc.Questions), len(batch.Skipped), pkg.QuizID)
	return nil
}

// previewDoc is the YAML shape printed by preview.
type previewDoc struct {
	QuizID      string              `yaml:"quiz_id,omitempty"`
	Title       string              `yaml:"title"`
	Description string              `yaml:"description,omitempty"`
	Questions   []question.Envelope `yaml:"questions"`
	Warnings    []string            `yaml:"warnings,omitempty"`
}

func runPreview(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	in := fs.String("in", "", "QTI zip or questions.xml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("preview needs -in")
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	d, err := parser.Open(data)
	if err != nil {
		return err
	}
	envs, err := question.WrapAll(d.Records)
	if err != nil {
		return err
	}
	out := previewDoc{QuizID: d.QuizID, Title: d.Title, Description: d.Description, Questions: envs}
	for _, w := range d.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

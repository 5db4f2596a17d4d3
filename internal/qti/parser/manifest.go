package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	resourceQTI = "imsqti_xmlv1p2"
	maxEntry    = 32 << 20
)

var ErrNoQuestions = errors.New("package has no questions document")

// Manifest lists the resources of an imsmanifest.xml.
type Manifest struct {
	Identifier string
	Resources  []ManifestResource
}

type ManifestResource struct {
	Identifier   string
	Href         string
	Type         string
	Files        []string
	Dependencies []string
}

type imsManifest struct {
	XMLName    xml.Name      `xml:"manifest"`
	Identifier string        `xml:"identifier,attr"`
	Resources  []imsResource `xml:"resources>resource"`
}

type imsResource struct {
	Identifier   string          `xml:"identifier,attr"`
	Href         string          `xml:"href,attr"`
	Type         string          `xml:"type,attr"`
	Files        []imsFile       `xml:"file"`
	Dependencies []imsDependency `xml:"dependency"`
}

type imsFile struct {
	Href string `xml:"href,attr"`
}

type imsDependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

type assessmentMeta struct {
	Identifier  string `xml:"identifier,attr"`
	Title       string `xml:"title"`
	Description string `xml:"description"`
}

func ParseManifest(b []byte) (Manifest, error) {
	var mf imsManifest
	if err := xml.Unmarshal(b, &mf); err != nil {
		return Manifest{}, fmt.Errorf("imsmanifest.xml: %w", err)
	}
	out := Manifest{Identifier: mf.Identifier}
	for _, r := range mf.Resources {
		res := ManifestResource{Identifier: r.Identifier, Href: r.Href, Type: r.Type}
		for _, f := range r.Files {
			res.Files = append(res.Files, f.Href)
		}
		for _, d := range r.Dependencies {
			res.Dependencies = append(res.Dependencies, d.IdentifierRef)
		}
		out.Resources = append(out.Resources, res)
	}
	return out, nil
}

// QuestionsHref returns the questions document named by the QTI resource.
func (m Manifest) QuestionsHref() string {
	for _, r := range m.Resources {
		if !strings.EqualFold(r.Type, resourceQTI) {
			continue
		}
		for _, f := range r.Files {
			if strings.HasSuffix(strings.ToLower(f), ".xml") {
				return f
			}
		}
		if r.Href != "" {
			return r.Href
		}
	}
	return ""
}

// MetaHref returns the assessment_meta.xml the QTI resource depends on.
func (m Manifest) MetaHref() string {
	byID := map[string]ManifestResource{}
	for _, r := range m.Resources {
		byID[r.Identifier] = r
	}
	for _, r := range m.Resources {
		if !strings.EqualFold(r.Type, resourceQTI) {
			continue
		}
		for _, dep := range r.Dependencies {
			d, ok := byID[dep]
			if !ok {
				continue
			}
			if d.Href != "" {
				return d.Href
			}
			if len(d.Files) > 0 {
				return d.Files[0]
			}
		}
	}
	return ""
}

// archive indexes the entries of a zip by cleaned path. Entries are read
// only when asked for, each capped at maxEntry.
type archive map[string]*zip.File

// sniffLen is how much of an unnamed .xml entry is read to recognise a
// questions document.
const sniffLen = 4 << 10

var errEntryTooLarge = errors.New("zip entry too large")

func readArchive(r io.ReaderAt, size int64) (archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	out := archive{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		out[path.Clean(f.Name)] = f
	}
	return out, nil
}

func (a archive) has(name string) bool {
	_, ok := a[path.Clean(name)]
	return ok
}

// read returns the content of an entry; ok is false when there is no such
// entry.
func (a archive) read(name string) (b []byte, ok bool, err error) {
	f, ok := a[path.Clean(name)]
	if !ok {
		return nil, false, nil
	}
	if f.UncompressedSize64 > maxEntry {
		return nil, true, fmt.Errorf("%s: %w", f.Name, errEntryTooLarge)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, true, err
	}
	defer rc.Close()
	// the header size is not trusted
	b, err = io.ReadAll(io.LimitReader(rc, maxEntry+1))
	if err != nil {
		return nil, true, fmt.Errorf("zip entry %s: %w", f.Name, err)
	}
	if len(b) > maxEntry {
		return nil, true, fmt.Errorf("%s: %w", f.Name, errEntryTooLarge)
	}
	return b, true, nil
}

func (a archive) sniff(name string) []byte {
	rc, err := a[name].Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	b, _ := io.ReadAll(io.LimitReader(rc, sniffLen))
	return b
}

// findQuestions falls back to a scan when the manifest is missing or does
// not name a QTI resource.
func (a archive) findQuestions() (string, bool) {
	var candidates []string
	for name := range a {
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".xml") {
			continue
		}
		if strings.HasSuffix(lower, "questions.xml") {
			return name, true
		}
		if bytes.Contains(a.sniff(name), []byte("questestinterop")) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	// map order is random
	first := candidates[0]
	for _, c := range candidates[1:] {
		if c < first {
			first = c
		}
	}
	return first, true
}

// ReadPackage decodes a zipped QTI package. Title and description come from
// assessment_meta.xml when the package carries one.
func ReadPackage(r io.ReaderAt, size int64) (Decoded, error) {
	a, err := readArchive(r, size)
	if err != nil {
		return Decoded{}, fmt.Errorf("read package: %w", err)
	}
	var mf Manifest
	var warnings []Warning
	switch b, ok, err := a.read("imsmanifest.xml"); {
	case err != nil:
		return Decoded{}, fmt.Errorf("read package: %w", err)
	case !ok:
		warnings = append(warnings, Warning{Item: -1, Message: "imsmanifest.xml not found"})
	default:
		if mf, err = ParseManifest(b); err != nil {
			warnings = append(warnings, Warning{Item: -1, Message: err.Error()})
		}
	}

	qpath := mf.QuestionsHref()
	if qpath == "" || !a.has(qpath) {
		found, ok := a.findQuestions()
		if !ok {
			return Decoded{}, ErrNoQuestions
		}
		if qpath != "" {
			warnings = append(warnings, Warning{Item: -1, Message: fmt.Sprintf("manifest names missing file %s", qpath)})
		}
		qpath = found
	}
	qb, _, err := a.read(qpath)
	if err != nil {
		return Decoded{}, fmt.Errorf("read package: %w", err)
	}
	out, err := DecodeQuestionsBytes(qb)
	if err != nil {
		return Decoded{}, fmt.Errorf("%s: %w", qpath, err)
	}
	out.Warnings = append(warnings, out.Warnings...)

	metaPath := mf.MetaHref()
	if metaPath == "" {
		metaPath = path.Join(path.Dir(qpath), "assessment_meta.xml")
	}
	if mb, ok, err := a.read(metaPath); err != nil {
		out.Warnings = append(out.Warnings, Warning{Item: -1, Message: err.Error()})
	} else if ok {
		var meta assessmentMeta
		if err := xml.Unmarshal(mb, &meta); err != nil {
			out.Warnings = append(out.Warnings, Warning{Item: -1, Message: fmt.Sprintf("%s: %v", metaPath, err)})
		} else {
			if t := strings.TrimSpace(meta.Title); t != "" {
				out.Title = t
			}
			out.Description = strings.TrimSpace(meta.Description)
			if out.QuizID == "" {
				out.QuizID = meta.Identifier
			}
		}
	}
	return out, nil
}

// Open decodes either a zipped package or a bare questions document.
func Open(data []byte) (Decoded, error) {
	if bytes.HasPrefix(data, []byte("PK")) {
		return ReadPackage(bytes.NewReader(data), int64(len(data)))
	}
	return DecodeQuestionsBytes(data)
}

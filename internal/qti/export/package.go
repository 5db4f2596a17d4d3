package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

const (
	ManifestFile  = "imsmanifest.xml"
	MetaFile      = "assessment_meta.xml"
	QuestionsFile = "questions.xml"
)

// Package is the output of one Build: three XML documents that share the
// quiz identifier.
type Package struct {
	QuizID         string
	Manifest       []byte
	AssessmentMeta []byte
	Questions      []byte
}

func (p Package) ManifestPath() string  { return ManifestFile }
func (p Package) MetaPath() string      { return p.QuizID + "/" + MetaFile }
func (p Package) QuestionsPath() string { return p.QuizID + "/" + QuestionsFile }

// File is one entry of the package archive.
type File struct {
	Path string
	Data []byte
}

// Files lists the artifacts in archive order.
func (p Package) Files() []File {
	return []File{
		{Path: p.ManifestPath(), Data: p.Manifest},
		{Path: p.MetaPath(), Data: p.AssessmentMeta},
		{Path: p.QuestionsPath(), Data: p.Questions},
	}
}

// WritePackage zips the artifacts into w. Callers that must not leave a
// partial archive behind should write into a buffer first (see Zip).
func WritePackage(w io.Writer, p Package) error {
	if p.QuizID == "" {
		return fmt.Errorf("package has no quiz identifier")
	}
	zw := zip.NewWriter(w)
	for _, f := range p.Files() {
		fw, err := zw.Create(f.Path)
		if err != nil {
			return fmt.Errorf("zip %s: %w", f.Path, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("zip %s: %w", f.Path, err)
		}
	}
	return zw.Close()
}

// Zip returns the complete archive in memory.
func Zip(p Package) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := WritePackage(buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

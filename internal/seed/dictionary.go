// Package seed loads reference data (qaafia dictionary, girah verses and
// ghazals) and demo users into the database. It is meant for development and
// first-time setup.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"harfzaar/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed data/sample.yml
var sampleDictionary []byte

// WordEntry is one dictionary word. Missing ravi columns are derived from the word.
type WordEntry struct {
	Word  string `yaml:"word"`
	Ravi1 string `yaml:"ravi1,omitempty"`
	Ravi2 string `yaml:"ravi2,omitempty"`
	Ravi3 string `yaml:"ravi3,omitempty"`
	Ravi4 string `yaml:"ravi4,omitempty"`
	Ravi5 string `yaml:"ravi5,omitempty"`
}

// GhazalEntry is one poem in the dictionary file.
type GhazalEntry struct {
	PoetName      string `yaml:"poetName"`
	PoetryDomain  string `yaml:"poetryDomain"`
	PoetryTitle   string `yaml:"poetryTitle"`
	PoetryContent string `yaml:"poetryContent"`
	Genre         string `yaml:"genre"`
}

// Dictionary is the on-disk seed format.
type Dictionary struct {
	Words      []WordEntry   `yaml:"words"`
	GirahLines []string      `yaml:"girahLines"`
	Ghazals    []GhazalEntry `yaml:"ghazals"`
}

// LoadFile reads a dictionary from path. An empty path loads the bundled sample.
func LoadFile(path string) (*Dictionary, error) {
	if path == "" {
		return Parse(bytes.NewReader(sampleDictionary))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a dictionary.
func Parse(r io.Reader) (*Dictionary, error) {
	var d Dictionary
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return &d, nil
		}
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Dictionary) validate() error {
	for i, w := range d.Words {
		if strings.TrimSpace(w.Word) == "" {
			return fmt.Errorf("words[%d]: word is required", i)
		}
	}
	for i, g := range d.Ghazals {
		if strings.TrimSpace(g.PoetName) == "" || strings.TrimSpace(g.PoetryTitle) == "" || strings.TrimSpace(g.PoetryContent) == "" {
			return fmt.Errorf("ghazals[%d]: poetName, poetryTitle and poetryContent are required", i)
		}
	}
	return nil
}

// Suffix returns the last n runes of word, or all of it when it is shorter.
func Suffix(word string, n int) string {
	if utf8.RuneCountInString(word) <= n {
		return word
	}
	r := []rune(word)
	return string(r[len(r)-n:])
}

// Model converts the entry, filling any empty ravi column.
func (e WordEntry) Model() models.Word {
	w := strings.TrimSpace(e.Word)
	pick := func(given string, n int) string {
		if given = strings.TrimSpace(given); given != "" {
			return given
		}
		return Suffix(w, n)
	}
	return models.Word{
		Word:  w,
		Ravi1: pick(e.Ravi1, 1),
		Ravi2: pick(e.Ravi2, 2),
		Ravi3: pick(e.Ravi3, 3),
		Ravi4: pick(e.Ravi4, 4),
		Ravi5: pick(e.Ravi5, 5),
	}
}

// WordModels returns every word ready for storage.
func (d *Dictionary) WordModels() []models.Word {
	out := make([]models.Word, 0, len(d.Words))
	for _, e := range d.Words {
		out = append(out, e.Model())
	}
	return out
}

// GhazalModels returns every ghazal ready for storage. Poet names are trimmed.
func (d *Dictionary) GhazalModels() []models.Ghazal {
	out := make([]models.Ghazal, 0, len(d.Ghazals))
	for _, g := range d.Ghazals {
		out = append(out, models.Ghazal{
			PoetName:      strings.TrimSpace(g.PoetName),
			PoetryDomain:  g.PoetryDomain,
			PoetryTitle:   strings.TrimSpace(g.PoetryTitle),
			PoetryContent: g.PoetryContent,
			Genre:         g.Genre,
		})
	}
	return out
}

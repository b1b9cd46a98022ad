package document

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Corpus subdirectory names.
const (
	TrainDir    = "train"
	TestDir     = "test"
	TrainRefDir = "train_ref"
	TestRefDir  = "test_ref"
)

// References maps a document name to its reference keyphrases.
type References map[string][]string

// Corpus describes the files of a benchmark corpus and its references.
type Corpus struct {
	Name     string
	Language string
	Encoding string

	Train []string // file paths
	Test  []string

	TrainRefs References
	TestRefs  References
}

// Name derives a document name from its path: base name without extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseReferences reads the line-oriented reference format:
//
//	<document_identifier>\t<keyphrase1>;<keyphrase2>;...
//
// Empty lines are ignored, keyphrases are trimmed and duplicates within a
// document are collapsed. A document listed twice is an error.
func ParseReferences(r io.Reader) (References, error) {
	refs := make(References)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, list, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: missing tab separator", lineNo)
		}
		id = strings.TrimSpace(id)
		if _, dup := refs[id]; dup {
			return nil, fmt.Errorf("line %d: document %q listed twice", lineNo, id)
		}
		refs[id] = uniqueKeyphrases(strings.Split(list, ";"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// LoadReferences loads references from a single file in the line format or
// from a directory of per-document files holding one keyphrase per line.
func LoadReferences(path string) (References, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseReferences(f)
	}

	files, err := listFiles(path)
	if err != nil {
		return nil, err
	}
	refs := make(References, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		// line-format files carry a tab on their first entry
		if strings.Contains(firstLine(string(data)), "\t") {
			parsed, err := ParseReferences(strings.NewReader(string(data)))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			refs.Merge(parsed)
			continue
		}
		refs[Name(file)] = uniqueKeyphrases(strings.Split(string(data), "\n"))
	}
	return refs, nil
}

// Merge adds every entry of other, keeping existing lists.
func (r References) Merge(other References) {
	for k, v := range other {
		if _, ok := r[k]; !ok {
			r[k] = v
		}
	}
}

// Names returns the sorted document names.
func (r References) Names() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadCorpus walks the corpus layout under root. Reference directories are
// optional; explicit reference paths, when given, override them.
func LoadCorpus(root, name, language, encoding string, trainRefPath, testRefPath string) (*Corpus, error) {
	c := &Corpus{
		Name:      name,
		Language:  language,
		Encoding:  encoding,
		TrainRefs: make(References),
		TestRefs:  make(References),
	}

	var err error
	if c.Train, err = optionalFiles(filepath.Join(root, TrainDir)); err != nil {
		return nil, fmt.Errorf("list train: %w", err)
	}
	if c.Test, err = optionalFiles(filepath.Join(root, TestDir)); err != nil {
		return nil, fmt.Errorf("list test: %w", err)
	}
	if len(c.Test) == 0 {
		return nil, fmt.Errorf("corpus %s: no test documents under %s", name, root)
	}

	if c.TrainRefs, err = loadRefs(trainRefPath, filepath.Join(root, TrainRefDir)); err != nil {
		return nil, fmt.Errorf("load train references: %w", err)
	}
	if c.TestRefs, err = loadRefs(testRefPath, filepath.Join(root, TestRefDir)); err != nil {
		return nil, fmt.Errorf("load test references: %w", err)
	}
	return c, nil
}

func loadRefs(explicit, dir string) (References, error) {
	if explicit != "" {
		return LoadReferences(explicit)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return make(References), nil
	}
	return LoadReferences(dir)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func optionalFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return listFiles(dir)
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func uniqueKeyphrases(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kp := range in {
		kp = strings.TrimSpace(kp)
		if kp == "" {
			continue
		}
		if _, ok := seen[kp]; ok {
			continue
		}
		seen[kp] = struct{}{}
		out = append(out, kp)
	}
	return out
}

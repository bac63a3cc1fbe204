package search

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/imagestate"
)

// Store is the on-disk index directory for one image, normally
// <imageRoot>/var/pkg/index.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily,
// on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Snapshot is an in-memory, fully loaded index: everything Search needs to
// resolve a query without re-reading the directory per term.
type Snapshot struct {
	Postings   map[string][]Posting // token -> postings, decoded from main_dict
	IDToValue  map[int]string
	ValueToID  map[string]int
	FullFMRIs  []fmri.FMRI
	FMRIHash   string
}

// Load reads every index file, returning ErrUnrecognizedVersion (wrapped
// with the offending file name) if any is missing or carries a header
// this package doesn't understand - the signal callers use to fall back
// to degraded mode.
func (s *Store) Load() (*Snapshot, error) {
	mainDict, err := s.readMainDict()
	if err != nil {
		return nil, err
	}
	idToValue, valueToID, err := s.readValueTables()
	if err != nil {
		return nil, err
	}
	fullList, err := s.readFullFMRIList()
	if err != nil {
		return nil, err
	}
	storedHash, err := s.readFullFMRIHash()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Postings:  mainDict,
		IDToValue: idToValue,
		ValueToID: valueToID,
		FullFMRIs: fullList,
		FMRIHash:  storedHash,
	}, nil
}

// VerifyHash reports whether the index's recorded full_fmri_list.hash
// still matches a hash freshly computed over its full_fmri_list content -
// the §4.4 IncorrectIndexFileHash staleness check.
func (idx *Snapshot) VerifyHash() bool {
	return idx.FMRIHash == fmriListHash(idx.FullFMRIs)
}

func (s *Store) openVersioned(name string) (*bufio.Reader, *os.File, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, ErrUnrecognizedVersion)
	}
	r := bufio.NewReader(f)
	if _, err := readHeader(r); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return r, f, nil
}

func (s *Store) readMainDict() (map[string][]Posting, error) {
	r, f, err := s.openVersioned(MainDictFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string][]Posting)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line != "" {
			token, postings, perr := parseMainDictLine(line)
			if perr != nil {
				return nil, fmt.Errorf("%s: %w: %v", MainDictFile, ErrInconsistentIndex, perr)
			}
			out[token] = postings
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

// parseMainDictLine parses one main_dict.ascii.v1 line in the literal
// form §4.4 gives: `token!{(doc_id,action,key,value_id,offset,variant_mask), ...}`.
func parseMainDictLine(line string) (string, []Posting, error) {
	bang := strings.IndexByte(line, '!')
	if bang < 0 || !strings.HasPrefix(line[bang+1:], "{") || !strings.HasSuffix(line, "}") {
		return "", nil, fmt.Errorf("malformed main dict line %q", line)
	}
	token := line[:bang]
	body := line[bang+2 : len(line)-1]
	body = strings.TrimSpace(body)
	if body == "" {
		return token, nil, nil
	}

	var postings []Posting
	for _, tuple := range strings.Split(body, "), (") {
		tuple = strings.TrimPrefix(tuple, "(")
		tuple = strings.TrimSuffix(tuple, ")")
		parts := strings.Split(tuple, ",")
		if len(parts) != 6 {
			return "", nil, fmt.Errorf("malformed posting tuple %q", tuple)
		}
		docID, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		valueID, err2 := strconv.Atoi(strings.TrimSpace(parts[3]))
		offset, err3 := strconv.ParseInt(strings.TrimSpace(parts[4]), 10, 64)
		mask, err4 := strconv.ParseUint(strings.TrimSpace(parts[5]), 10, 32)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return "", nil, fmt.Errorf("malformed posting fields %q", tuple)
		}
		postings = append(postings, Posting{
			DocID:       docID,
			Action:      action.Kind(strings.TrimSpace(parts[1])),
			Key:         strings.TrimSpace(parts[2]),
			ValueID:     valueID,
			Offset:      offset,
			VariantMask: uint32(mask),
		})
	}
	return token, postings, nil
}

func renderMainDictLine(token string, postings []Posting) string {
	var b strings.Builder
	b.WriteString(token)
	b.WriteByte('!')
	b.WriteByte('{')
	for i, p := range postings {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%d,%s,%s,%d,%d,%d)", p.DocID, p.Action, p.Key, p.ValueID, p.Offset, p.VariantMask)
	}
	b.WriteByte('}')
	return b.String()
}

func (s *Store) readValueTables() (map[int]string, map[string]int, error) {
	idToValue := make(map[int]string)
	r, f, err := s.openVersioned(IDToValueFile)
	if err != nil {
		return nil, nil, err
	}
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line != "" {
			id, value, ok := splitTab(line)
			if !ok {
				f.Close()
				return nil, nil, fmt.Errorf("%s: %w", IDToValueFile, ErrInconsistentIndex)
			}
			n, perr := strconv.Atoi(id)
			if perr != nil {
				f.Close()
				return nil, nil, fmt.Errorf("%s: %w", IDToValueFile, ErrInconsistentIndex)
			}
			idToValue[n] = value
		}
		if err != nil {
			break
		}
	}
	f.Close()

	valueToID := make(map[string]int, len(idToValue))
	for id, value := range idToValue {
		valueToID[value] = id
	}
	return idToValue, valueToID, nil
}

func splitTab(line string) (string, string, bool) {
	i := strings.IndexByte(line, '\t')
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

func (s *Store) readFullFMRIList() ([]fmri.FMRI, error) {
	r, f, err := s.openVersioned(FullFMRIListFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []fmri.FMRI
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line != "" {
			parsed, perr := fmri.Parse(line)
			if perr != nil {
				return nil, fmt.Errorf("%s: %w", FullFMRIListFile, ErrInconsistentIndex)
			}
			out = append(out, parsed)
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

func (s *Store) readFullFMRIHash() (string, error) {
	data, err := os.ReadFile(s.path(FullFMRIListHash))
	if err != nil {
		return "", fmt.Errorf("%s: %w", FullFMRIListHash, ErrUnrecognizedVersion)
	}
	return strings.TrimSpace(string(data)), nil
}

// readByteOffset loads a token->offset map from either byte_offset.v1 or
// token_byte_offset.v1 - see DESIGN.md for why this package keeps both as
// distinct files (published vs. staging) rather than treating the
// duplication as accidental.
func (s *Store) readByteOffset(name string) (map[string]int64, error) {
	r, f, err := s.openVersioned(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]int64)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line != "" {
			token, offStr, ok := splitTab(line)
			if !ok {
				return nil, fmt.Errorf("%s: %w", name, ErrInconsistentIndex)
			}
			off, perr := strconv.ParseInt(offStr, 10, 64)
			if perr != nil {
				return nil, fmt.Errorf("%s: %w", name, ErrInconsistentIndex)
			}
			out[token] = off
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

// writeFingerprint records state's imagestate.Fingerprint so a later
// fingerprintStale call can tell whether the index has drifted from what's
// actually installed.
func (s *Store) writeFingerprint(fp uint64) error {
	return writeAtomic(s.dir, fingerprintFile, []byte(strconv.FormatUint(fp, 10)+"\n"))
}

// fingerprintStale reports whether state's current Fingerprint differs from
// the one recorded at the last Build. A missing fingerprint file (index
// built before this check existed, or never built) is not itself staleness -
// VerifyHash and the index-file version checks already cover that.
func (s *Store) fingerprintStale(state *imagestate.State) (bool, error) {
	data, err := os.ReadFile(s.path(fingerprintFile))
	if err != nil {
		return false, err
	}
	stored, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return false, err
	}
	current, err := imagestate.Fingerprint(state)
	if err != nil {
		return false, err
	}
	return current != stored, nil
}

// sortedTokens returns postings' keys in sorted order, the order
// main_dict.ascii.v1 is written in (§4.4: "sorted by token").
func sortedTokens(postings map[string][]Posting) []string {
	tokens := make([]string, 0, len(postings))
	for t := range postings {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

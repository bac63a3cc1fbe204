package search

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"

	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/pkgerrors"
)

// BuildStats summarizes one full rebuild, for logging/metrics.
type BuildStats struct {
	Packages int
	Tokens   int
	Postings int
}

// Build performs a full rebuild (§4.4 "Build": scan installed manifests,
// tokenize every action, write the dictionary in one sorted pass, verify
// the full-fmri-list hash) and replaces every file under the store's
// directory. It also clears fast_add.v1/fast_remove.v1, since a full
// rebuild folds in every pending incremental change.
func (s *Store) Build(entries []Entry) (pkgerrors.Outcome[BuildStats], error) {
	var out pkgerrors.Outcome[BuildStats]

	docs, values, postings := indexEntries(entries)
	tokens := sortedTokens(postings)
	var body bytes.Buffer
	byteOffset := make(map[string]int64, len(tokens))
	var totalPostings int
	for _, tok := range tokens {
		byteOffset[tok] = int64(body.Len())
		body.WriteString(renderMainDictLine(tok, postings[tok]))
		body.WriteByte('\n')
		totalPostings += len(postings[tok])
	}

	if err := s.writeMainDict(body.Bytes()); err != nil {
		return out, err
	}
	// byte_offset.v1 is the published token->offset map current readers
	// use; token_byte_offset.v1 is the working copy. Build writes the same
	// content to both, and no incremental step writes either - see
	// DESIGN.md for why this package keeps both rather than collapsing
	// them into one file.
	if err := s.writeByteOffset(ByteOffsetFile, byteOffset); err != nil {
		return out, err
	}
	if err := s.writeByteOffset(TokenByteOffsetFile, byteOffset); err != nil {
		return out, err
	}
	if err := s.writeValueTables(values); err != nil {
		return out, err
	}
	fmriLineOffset, err := s.writeFullFMRIList(docs.fmris)
	if err != nil {
		return out, err
	}
	if err := s.writeFMRIOffsets(fmriLineOffset); err != nil {
		return out, err
	}
	if err := writeAtomic(s.dir, FastAddFile, headerBytes()); err != nil {
		return out, err
	}
	if err := writeAtomic(s.dir, FastRemoveFile, headerBytes()); err != nil {
		return out, err
	}

	out.Value = BuildStats{Packages: len(docs.fmris), Tokens: len(tokens), Postings: totalPostings}
	return out, nil
}

func headerBytes() []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	_ = writeHeader(w, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat})
	w.Flush()
	return buf.Bytes()
}

func (s *Store) writeMainDict(body []byte) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeHeader(w, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat}); err != nil {
		return err
	}
	w.Write(body)
	w.Flush()
	return writeAtomic(s.dir, MainDictFile, buf.Bytes())
}

func (s *Store) writeByteOffset(name string, offsets map[string]int64) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeHeader(w, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat}); err != nil {
		return err
	}
	for _, tok := range sortedInt64Keys(offsets) {
		fmt.Fprintf(w, "%s\t%d\n", tok, offsets[tok])
	}
	w.Flush()
	return writeAtomic(s.dir, name, buf.Bytes())
}

func sortedInt64Keys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) writeValueTables(values *valueTable) error {
	var idBuf, valBuf bytes.Buffer
	idW := bufio.NewWriter(&idBuf)
	valW := bufio.NewWriter(&valBuf)
	if err := writeHeader(idW, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat}); err != nil {
		return err
	}
	if err := writeHeader(valW, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat}); err != nil {
		return err
	}
	for _, id := range values.sortedIDs() {
		fmt.Fprintf(idW, "%d\t%s\n", id, values.idToValue[id])
	}
	for _, value := range values.sortedValues() {
		fmt.Fprintf(valW, "%s\t%d\n", value, values.valueToID[value])
	}
	idW.Flush()
	valW.Flush()
	if err := writeAtomic(s.dir, IDToValueFile, idBuf.Bytes()); err != nil {
		return err
	}
	return writeAtomic(s.dir, ValueToIDFile, valBuf.Bytes())
}

// writeFullFMRIList writes full_fmri_list and its hash, returning each
// FMRI's byte offset within the file (the header is excluded from the
// offsets, since a reader always skips it first via readHeader).
func (s *Store) writeFullFMRIList(fmris []fmri.FMRI) (map[string]int64, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeHeader(w, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat}); err != nil {
		return nil, err
	}
	w.Flush()

	offsets := make(map[string]int64, len(fmris))
	var body bytes.Buffer
	for _, f := range fmris {
		offsets[f.String()] = int64(body.Len())
		body.WriteString(f.String())
		body.WriteByte('\n')
	}
	buf.Write(body.Bytes())

	if err := writeAtomic(s.dir, FullFMRIListFile, buf.Bytes()); err != nil {
		return nil, err
	}
	if err := writeAtomic(s.dir, FullFMRIListHash, []byte(fmriListHash(fmris)+"\n")); err != nil {
		return nil, err
	}
	return offsets, nil
}

func (s *Store) writeFMRIOffsets(offsets map[string]int64) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeHeader(w, header{Version: FormatVersion, OnDiskFormat: OnDiskFormat}); err != nil {
		return err
	}
	for _, f := range sortedInt64Keys(offsets) {
		fmt.Fprintf(w, "%s\t%d\n", f, offsets[f])
	}
	w.Flush()
	return writeAtomic(s.dir, FMRIOffsetsFile, buf.Bytes())
}

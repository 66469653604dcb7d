package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/korjavin/dricalc/internal/dataset"
)

const schemaVersion = 1

// encodeRecord serialises a record into a compact binary format:
//
//	version     uvarint  (=1)
//	sample      uvarint length + UTF-8
//	common      uvarint length + UTF-8
//	source      uvarint length + UTF-8
//	cellCount   uvarint
//	cells       kind byte, then float64 LE (measured, filled)
//	            or uvarint length + UTF-8 (text); nothing for blank
func encodeRecord(r dataset.Record) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, schemaVersion)
	writeString(&buf, r.SampleName)
	writeString(&buf, r.CommonName)
	writeString(&buf, r.Source)

	writeUvarint(&buf, uint64(len(r.Cells)))
	for _, c := range r.Cells {
		buf.WriteByte(byte(c.Kind))
		switch c.Kind {
		case dataset.Measured, dataset.Filled:
			writeFloat64LE(&buf, c.Num)
		case dataset.Text:
			writeString(&buf, c.Raw)
		}
	}
	return buf.Bytes()
}

// decodeRecord parses a blob produced by encodeRecord.
func decodeRecord(data []byte) (dataset.Record, error) {
	var rec dataset.Record
	r := bytes.NewReader(data)

	ver, err := binary.ReadUvarint(r)
	if err != nil {
		return rec, fmt.Errorf("read version: %w", err)
	}
	if ver != schemaVersion {
		return rec, fmt.Errorf("unsupported schema version %d", ver)
	}

	if rec.SampleName, err = readString(r); err != nil {
		return rec, fmt.Errorf("read sample name: %w", err)
	}
	if rec.CommonName, err = readString(r); err != nil {
		return rec, fmt.Errorf("read common name: %w", err)
	}
	if rec.Source, err = readString(r); err != nil {
		return rec, fmt.Errorf("read source: %w", err)
	}

	n, err := binary.ReadUvarint(r)
	if err != nil {
		return rec, fmt.Errorf("read cell count: %w", err)
	}
	if n > uint64(r.Len()) {
		return rec, fmt.Errorf("cell count %d exceeds payload", n)
	}
	rec.Cells = make([]dataset.Cell, n)
	for i := range rec.Cells {
		kind, err := r.ReadByte()
		if err != nil {
			return rec, fmt.Errorf("read cell %d kind: %w", i, err)
		}
		c := dataset.Cell{Kind: dataset.CellKind(kind)}
		switch c.Kind {
		case dataset.Measured, dataset.Filled:
			if c.Num, err = readFloat64LE(r); err != nil {
				return rec, fmt.Errorf("read cell %d: %w", i, err)
			}
		case dataset.Text:
			if c.Raw, err = readString(r); err != nil {
				return rec, fmt.Errorf("read cell %d: %w", i, err)
			}
		case dataset.Blank:
		default:
			return rec, fmt.Errorf("cell %d: unknown kind %d", i, kind)
		}
		rec.Cells[i] = c
	}
	return rec, nil
}

// encodeStrings and decodeStrings store the column and source lists.
func encodeStrings(ss []string) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(ss)))
	for _, s := range ss {
		writeString(&buf, s)
	}
	return buf.Bytes()
}

func decodeStrings(data []byte) ([]string, error) {
	r := bytes.NewReader(data)
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, fmt.Errorf("list length %d exceeds payload", n)
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = readString(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeUvarint(w *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}

func writeString(w *bytes.Buffer, s string) {
	writeUvarint(w, uint64(len(s)))
	w.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > uint64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeFloat64LE(w *bytes.Buffer, f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	w.Write(b[:])
}

func readFloat64LE(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

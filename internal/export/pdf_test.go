/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"structsketch/internal/domain"
)

func sampleResult() *domain.StaticResult {
	var st []domain.Station
	for i := 0; i <= 10; i++ {
		x := 0.6 * float64(i)
		v := 5.0
		if x > 3 {
			v = -5
		}
		m := 5 * x
		if x > 3 {
			m = 5 * (6 - x)
		}
		st = append(st, domain.Station{X: x, V: v, M: m})
	}
	return &domain.StaticResult{
		Reactions:     map[string]domain.Vec3{"1": {0, 5, 0}, "2": {0, 5, 0}},
		MemberResults: map[string]domain.MemberResult{"1": {Stations: st, MaxM: 15, MaxV: 5, MinV: -5}},
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, sampleSnapshot(t), PDFOptions{Options: Options{Labels: true}, Report: true, Result: sampleResult()})
	if err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("missing pdf header")
	}
	if buf.Len() < 2000 {
		t.Fatalf("pdf suspiciously small: %d bytes", buf.Len())
	}
}

func TestExportPDFFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pdf", "beam.pdf")
	if err := ExportPDF(out, sampleSnapshot(t), PDFOptions{}); err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	st, err := os.Stat(out)
	if err != nil || st.Size() == 0 {
		t.Fatalf("missing pdf: %v", err)
	}
}

func TestReleaseText(t *testing.T) {
	got := releaseText(domain.Releases{End: domain.ReleaseTriple{M: true}})
	if got != "start -, end M" {
		t.Fatalf("releaseText = %q", got)
	}
}

func TestSortedKeysNumeric(t *testing.T) {
	got := sortedKeys(map[string]int{"10": 0, "2": 0, "1": 0})
	if strings.Join(got, ",") != "1,2,10" {
		t.Fatalf("sortedKeys = %v", got)
	}
}

func TestForceDiagram(t *testing.T) {
	if _, err := ForceDiagram("empty", domain.MemberResult{}); !errors.Is(err, ErrNoStations) {
		t.Fatalf("want ErrNoStations, got %v", err)
	}
	var buf bytes.Buffer
	if err := WriteForceDiagram(&buf, "png", "Member 1", sampleResult().MemberResults["1"]); err != nil {
		t.Fatalf("WriteForceDiagram: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("decode diagram: %v", err)
	}
}

func TestSaveForceDiagrams(t *testing.T) {
	dir := t.TempDir()
	files, err := SaveForceDiagrams(dir, sampleResult())
	if err != nil {
		t.Fatalf("SaveForceDiagrams: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "member-1.png" {
		t.Fatalf("files = %v", files)
	}
	if files, err := SaveForceDiagrams(dir, nil); err != nil || files != nil {
		t.Fatalf("nil result: %v %v", files, err)
	}
}

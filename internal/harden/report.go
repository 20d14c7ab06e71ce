/*
 * Copyright 2024 The EDDI Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package harden

import (
	"encoding/csv"
	"io"
)

// Report is the §6 persisted side-output: the list of functions whose
// bodies were duplicated, for downstream passes (e.g. CFC) to skip —
// a duplicated function's control flow already carries EDDI's own
// redundancy and doesn't need a second, independent signature scheme
// layered on top of it.
type Report struct {
	DuplicatedFunctions []string
}

func newReport() *Report {
	return &Report{}
}

func (r *Report) recordDuplicated(name string) {
	r.DuplicatedFunctions = append(r.DuplicatedFunctions, name)
}

// WriteCSV writes one row per duplicated function: its original name
// and the name of its "_dup" sibling.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"function", "dup_function"}); err != nil {
		return err
	}
	for _, name := range r.DuplicatedFunctions {
		if err := cw.Write([]string{name, name + "_dup"}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

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

package irtest

import gofakeit "github.com/brianvoe/gofakeit/v6"

// nameBatch is filled by gofakeit.Struct in one call, the way the
// teacher's fuzz/builder fills an entire Thrift struct at once rather
// than generating one random string at a time.
type nameBatch struct {
	A, B, C, D, E, F, G, H string
}

// RandomNames returns n pseudo-random identifier strings, suitable for
// naming ir.Value/ir.Function/annotation fixtures in property-style
// tests that need many mutually distinguishable names without hand
// enumerating them.
func RandomNames(n int) []string {
	names := make([]string, 0, n)
	for len(names) < n {
		var batch nameBatch
		_ = gofakeit.Struct(&batch)
		for _, v := range []string{batch.A, batch.B, batch.C, batch.D, batch.E, batch.F, batch.G, batch.H} {
			if v == "" {
				continue
			}
			names = append(names, v)
			if len(names) == n {
				break
			}
		}
	}
	return names
}

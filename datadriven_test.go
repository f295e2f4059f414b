// Copyright 2026 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chainmap

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// TestDataDriven exercises the table through a command language against
// golden files in testdata/. The identity hash makes bucket placement, and
// therefore list order, deterministic.
//
// Commands:
//
//	new [bucket-count=<n>]    construct a fresh map
//	put                       input lines of "<key> <value>"
//	get                       input lines of "<key>"
//	delete                    input lines of "<key>"
//	bucket-of                 input lines of "<key>"
//	rehash target=<n>
//	reserve n=<n>
//	clear
//	scan                      keys in list order
//	buckets                   non-empty buckets with their runs
func TestDataDriven(t *testing.T) {
	var m *Map[int, string]
	status := func() string {
		return fmt.Sprintf("len=%d buckets=%d", m.Len(), m.BucketCount())
	}
	parseInt := func(t *testing.T, s string) int {
		v, err := strconv.Atoi(s)
		require.NoError(t, err)
		return v
	}

	datadriven.RunTest(t, "testdata/hash_table", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "new":
			bucketCount := 0
			if d.HasArg("bucket-count") {
				d.ScanArgs(t, "bucket-count", &bucketCount)
			}
			var err error
			m, err = New[int, string](bucketCount, WithHash[int, string](identityHash))
			require.NoError(t, err)
			return status()

		case "put":
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				fields := strings.Fields(line)
				require.Len(t, fields, 2)
				require.NoError(t, m.Put(parseInt(t, fields[0]), fields[1]))
			}
			return status()

		case "get":
			var buf strings.Builder
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				k := parseInt(t, strings.TrimSpace(line))
				if v, ok := m.Get(k); ok {
					fmt.Fprintf(&buf, "%d -> %s\n", k, v)
				} else {
					fmt.Fprintf(&buf, "%d -> not found\n", k)
				}
			}
			return buf.String()

		case "delete":
			var buf strings.Builder
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				k := parseInt(t, strings.TrimSpace(line))
				fmt.Fprintf(&buf, "%d -> %t\n", k, m.Delete(k))
			}
			return buf.String()

		case "bucket-of":
			var buf strings.Builder
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				k := parseInt(t, strings.TrimSpace(line))
				b, err := m.Bucket(k)
				if err != nil {
					require.True(t, errors.Is(err, ErrEmptyContainer))
					fmt.Fprintf(&buf, "%d -> error: empty container\n", k)
					continue
				}
				fmt.Fprintf(&buf, "%d -> %d\n", k, b)
			}
			return buf.String()

		case "rehash":
			var target int
			d.ScanArgs(t, "target", &target)
			require.NoError(t, m.Rehash(target))
			return status()

		case "reserve":
			var n int
			d.ScanArgs(t, "n", &n)
			require.NoError(t, m.Reserve(n))
			return status()

		case "clear":
			require.NoError(t, m.Clear())
			return status()

		case "scan":
			var keys []string
			m.All(func(k int, v string) bool {
				keys = append(keys, strconv.Itoa(k))
				return true
			})
			return strings.Join(keys, " ") + "\n"

		case "buckets":
			var buf strings.Builder
			for b := 0; b < m.BucketCount(); b++ {
				n, err := m.BucketSize(b)
				require.NoError(t, err)
				if n == 0 {
					continue
				}
				fmt.Fprintf(&buf, "bucket %d:", b)
				begin, err := m.BucketBegin(b)
				require.NoError(t, err)
				end, err := m.BucketEnd(b)
				require.NoError(t, err)
				for c := begin; c != end; {
					k, err := m.KeyAt(c)
					require.NoError(t, err)
					fmt.Fprintf(&buf, " %d", k)
					c, err = m.Next(c)
					require.NoError(t, err)
				}
				fmt.Fprintf(&buf, "\n")
			}
			return buf.String()

		default:
			d.Fatalf(t, "unknown command: %s", d.Cmd)
			return ""
		}
	})
}

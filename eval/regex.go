// Copyright 2024 The GraphCypher Authors.
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

package eval

import (
	"regexp"

	"github.com/cypherdb/graphengine/core"
)

// matchRegex implements the =~ operator. Go's regexp package (RE2) is
// used directly: none of the retrieval pack's example repositories
// bundle a third-party regex engine, and RE2 is the standard choice for
// this concern in idiomatic Go (see DESIGN.md).
func matchRegex(s, pattern string) (core.Value, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return core.Value{}, core.ErrTypeMismatch.New("invalid regular expression: " + err.Error())
	}
	return core.Bool(re.MatchString(s)), nil
}

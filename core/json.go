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

package core

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ValueFromJSON parses a JSON document (object, array, or scalar) into
// a Value per §4.3: the parser accepts an object at the top level as
// well as any JSON scalar/array, since property maps and list literals
// both flow through this path.
func ValueFromJSON(data []byte) (Value, error) {
	var raw interface{}
	if len(data) == 0 {
		return Map(map[string]Value{}), nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, ErrTypeMismatch.New("invalid JSON: " + err.Error())
	}
	return fromAny(raw), nil
}

func fromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case string:
		return String(t)
	case []interface{}:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = fromAny(e)
		}
		return List(vs)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, v := range t {
			m[k] = fromAny(v)
		}
		return Map(m)
	default:
		return Null()
	}
}

// PropertiesFromJSON parses a JSON object into a property map,
// rejecting non-object top-level documents.
func PropertiesFromJSON(data []byte) (map[string]Value, error) {
	v, err := ValueFromJSON(data)
	if err != nil {
		return nil, err
	}
	if v.Kind() == KindNull {
		return map[string]Value{}, nil
	}
	if v.Kind() != KindMap {
		return nil, ErrNotAMap.New(v.Kind())
	}
	return v.AsMap(), nil
}

// ToJSON serializes a Value to its canonical JSON text per §4.3: a
// streaming writer (not repeated mprintf concatenation, per the design
// notes) that double-quotes strings with `" \ / n r t` escaped, renders
// floats with up to 15 significant digits, renders integers without a
// decimal point, and renders node/relationship references as
// {"_type":"node","_id":<i>} / {"_type":"relationship","_id":<i>}.
func ToJSON(v Value) string {
	var sb strings.Builder
	writeJSON(&sb, v)
	return sb.String()
}

func writeJSON(sb *strings.Builder, v Value) {
	switch v.Kind() {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if v.AsBool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.AsFloat(), 'g', 15, 64))
	case KindString:
		writeJSONString(sb, v.AsString())
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.AsList() {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSON(sb, e)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		m := v.AsMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSONString(sb, k)
			sb.WriteByte(':')
			writeJSON(sb, m[k])
		}
		sb.WriteByte('}')
	case KindNode:
		sb.WriteString(`{"_type":"node","_id":`)
		sb.WriteString(strconv.FormatInt(v.AsNodeID(), 10))
		sb.WriteByte('}')
	case KindRelationship:
		sb.WriteString(`{"_type":"relationship","_id":`)
		sb.WriteString(strconv.FormatInt(v.AsRelationshipID(), 10))
		sb.WriteByte('}')
	case KindPath:
		p := v.AsPath()
		sb.WriteString(`{"_type":"path","nodes":[`)
		for i, id := range p.NodeIDs {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(id, 10))
		}
		sb.WriteString(`],"relationships":[`)
		for i, id := range p.EdgeIDs {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(id, 10))
		}
		sb.WriteString(`]}`)
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '/':
			sb.WriteString(`\/`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// LabelsToJSON renders a label slice as the canonical JSON array stored
// in the backing node table's `labels` column.
func LabelsToJSON(labels []string) string {
	vs := make([]Value, len(labels))
	for i, l := range labels {
		vs[i] = String(l)
	}
	return ToJSON(List(vs))
}

// LabelsFromJSON parses the `labels` column back into a string slice.
func LabelsFromJSON(data []byte) ([]string, error) {
	v, err := ValueFromJSON(data)
	if err != nil {
		return nil, err
	}
	if v.Kind() == KindNull {
		return nil, nil
	}
	if v.Kind() != KindList {
		return nil, ErrNotAList.New(v.Kind())
	}
	out := make([]string, 0, len(v.AsList()))
	for _, e := range v.AsList() {
		if e.Kind() != KindString {
			return nil, ErrNotAList.New(v.Kind())
		}
		out = append(out, e.AsString())
	}
	return out, nil
}

// PropertiesToJSON renders a property map as the canonical JSON object
// stored in the backing table's `properties` column.
func PropertiesToJSON(props map[string]Value) string {
	if props == nil {
		props = map[string]Value{}
	}
	return ToJSON(Map(props))
}

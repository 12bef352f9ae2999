package rpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	provisionv1alpha1 "github.com/anvil-platform/provisioner/api/v1alpha1"
)

// Request is the decoded form of a Resolve request:
//
//	{namespace, requestId, requirements: [{namespace, value, versionConstraint, resolution, attributes: {key: value}}]}
type Request struct {
	Namespace    string
	RequestID    string
	Requirements []provisionv1alpha1.RequirementSpec
}

// Response is the decoded form of a Resolve response:
//
//	{requestId, resources: [name], mapping: {requirement: provider}, unsatisfied: [requirement]}
type Response struct {
	RequestID   string
	Resources   []string
	Mapping     map[string]string
	Unsatisfied []string
}

func (r *Request) ToStruct() (*structpb.Struct, error) {
	reqs := make([]any, 0, len(r.Requirements))
	for _, spec := range r.Requirements {
		m := map[string]any{
			"namespace": spec.Namespace,
			"value":     spec.Value,
		}
		if spec.VersionConstraint != "" {
			m["versionConstraint"] = spec.VersionConstraint
		}
		if spec.Resolution != "" {
			m["resolution"] = string(spec.Resolution)
		}
		if len(spec.Attributes) > 0 {
			attrs := make(map[string]any, len(spec.Attributes))
			for k, v := range spec.Attributes {
				attrs[k] = v
			}
			m["attributes"] = attrs
		}
		reqs = append(reqs, m)
	}
	return structpb.NewStruct(map[string]any{
		"namespace":    r.Namespace,
		"requestId":    r.RequestID,
		"requirements": reqs,
	})
}

func DecodeRequest(s *structpb.Struct) (*Request, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrMalformedMessage)
	}
	out := &Request{}
	var err error
	if out.Namespace, err = stringField(s, "namespace"); err != nil {
		return nil, err
	}
	if out.RequestID, err = stringField(s, "requestId"); err != nil {
		return nil, err
	}
	list, err := listField(s, "requirements")
	if err != nil {
		return nil, err
	}
	for i, v := range list {
		entry := v.GetStructValue()
		if entry == nil {
			return nil, fmt.Errorf("%w: requirements[%d] is not an object", ErrMalformedMessage, i)
		}
		var spec provisionv1alpha1.RequirementSpec
		if spec.Namespace, err = stringField(entry, "namespace"); err != nil {
			return nil, err
		}
		if spec.Value, err = stringField(entry, "value"); err != nil {
			return nil, err
		}
		if spec.VersionConstraint, err = stringField(entry, "versionConstraint"); err != nil {
			return nil, err
		}
		resolution, err := stringField(entry, "resolution")
		if err != nil {
			return nil, err
		}
		spec.Resolution = provisionv1alpha1.Resolution(resolution)
		if spec.Attributes, err = stringMap(entry, "attributes"); err != nil {
			return nil, fmt.Errorf("requirements[%d]: %w", i, err)
		}
		out.Requirements = append(out.Requirements, spec)
	}
	return out, nil
}

func (r *Response) ToStruct() (*structpb.Struct, error) {
	mapping := make(map[string]any, len(r.Mapping))
	for k, v := range r.Mapping {
		mapping[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"requestId":   r.RequestID,
		"resources":   stringsToAny(r.Resources),
		"mapping":     mapping,
		"unsatisfied": stringsToAny(r.Unsatisfied),
	})
}

func DecodeResponse(s *structpb.Struct) (*Response, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: response is nil", ErrMalformedMessage)
	}
	out := &Response{Mapping: map[string]string{}}
	var err error
	if out.RequestID, err = stringField(s, "requestId"); err != nil {
		return nil, err
	}
	if out.Resources, err = stringList(s, "resources"); err != nil {
		return nil, err
	}
	if out.Unsatisfied, err = stringList(s, "unsatisfied"); err != nil {
		return nil, err
	}
	mapping, err := stringMap(s, "mapping")
	if err != nil {
		return nil, err
	}
	for k, v := range mapping {
		out.Mapping[k] = v
	}
	return out, nil
}

// stringField returns "" for absent and null fields.
func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedMessage, name)
	}
}

func listField(s *structpb.Struct, name string) ([]*structpb.Value, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_ListValue:
		return k.ListValue.GetValues(), nil
	case *structpb.Value_NullValue:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a list", ErrMalformedMessage, name)
	}
}

func stringList(s *structpb.Struct, name string) ([]string, error) {
	list, err := listField(s, name)
	if err != nil {
		return nil, err
	}
	var out []string
	for i, v := range list {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a string", ErrMalformedMessage, name, i)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

// stringMap decodes an object of strings. Absent and null fields yield nil.
func stringMap(s *structpb.Struct, name string) (map[string]string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, nil
	}
	var fields map[string]*structpb.Value
	switch k := v.GetKind().(type) {
	case *structpb.Value_StructValue:
		fields = k.StructValue.GetFields()
	case *structpb.Value_NullValue:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s is not an object", ErrMalformedMessage, name)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(fields))
	for k, fv := range fields {
		sv, ok := fv.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%q] is not a string", ErrMalformedMessage, name, k)
		}
		out[k] = sv.StringValue
	}
	return out, nil
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

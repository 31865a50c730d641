package match

import (
	"reflect"
	"strings"

	"swipeserver/apicodes"
	"swipeserver/collections"

	"github.com/mitchellh/mapstructure"
)

// Filter narrows suggested users by profile fields. Zero values impose no
// constraint; the set fields are ANDed together.
type Filter struct {
	// A profile matches when its value equals any listed one. Clients send
	// these either as a single string or as a list.
	Major      []string `mapstructure:"major"`
	CareerPath []string `mapstructure:"careerPath"`
	UserType   []string `mapstructure:"userType"`

	GradYear int `mapstructure:"gradYear"`

	// List fields match when the profile shares at least one value.
	Hobbies              []string `mapstructure:"hobbies"`
	Orgs                 []string `mapstructure:"orgs"`
	InterestedIndustries []string `mapstructure:"interestedIndustries"`
	MentorshipAreas      []string `mapstructure:"mentorshipAreas"`
}

// DecodeFilter reads a filter from a decoded JSON body. Unknown keys are
// ignored, null leaves a field unset, and scalars are converted where
// unambiguous ("2025" for gradYear, a single string for a list). Blank list
// entries are dropped, so "" and [] both mean no constraint.
func DecodeFilter(body map[string]interface{}) (*Filter, error) {
	filter := &Filter{}
	if len(body) == 0 {
		return filter, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(liftString),
		WeaklyTypedInput: true,
		Result:           filter,
	})
	if err != nil {
		return nil, apicodes.Wrap(err, "building filter decoder")
	}
	if err := decoder.Decode(body); err != nil {
		return nil, &apicodes.Error{Kind: apicodes.BadRequest, Message: "Invalid filter", Err: err}
	}
	for _, list := range []*[]string{
		&filter.Major, &filter.CareerPath, &filter.UserType,
		&filter.Hobbies, &filter.Orgs, &filter.InterestedIndustries, &filter.MentorshipAreas,
	} {
		*list = dropBlank(*list)
	}
	return filter, nil
}

// liftString turns a lone string into a one element list.
func liftString(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	return []string{reflect.ValueOf(data).String()}, nil
}

func dropBlank(values []string) []string {
	kept := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Match reports whether p satisfies every constraint of the filter.
// A nil filter matches everything.
func (f *Filter) Match(p *collections.Profile) bool {
	if f == nil {
		return true
	}
	if f.GradYear != 0 && f.GradYear != p.GradYear {
		return false
	}
	return oneOf(f.Major, p.Major) &&
		oneOf(f.CareerPath, p.CareerPath) &&
		oneOf(f.UserType, p.UserType) &&
		overlaps(f.Hobbies, p.Hobbies) &&
		overlaps(f.Orgs, p.Orgs) &&
		overlaps(f.InterestedIndustries, p.InterestedIndustries) &&
		overlaps(f.MentorshipAreas, p.MentorshipAreas)
}

// oneOf is true when want is empty or contains have.
func oneOf(want []string, have string) bool {
	return overlaps(want, []string{have})
}

// overlaps is true when want is empty or shares a value with have.
func overlaps(want, have []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

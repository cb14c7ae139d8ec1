package apifootball

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

type fixturesEnvelope struct {
	Response []fixtureItem `json:"response"`
}

type fixtureItem struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	Teams struct {
		Home teamRef `json:"home"`
		Away teamRef `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

type teamRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Winner *bool  `json:"winner"`
}

type eventsEnvelope struct {
	Response []struct {
		Team   teamRef `json:"team"`
		Type   string  `json:"type"`
		Detail string  `json:"detail"`
	} `json:"response"`
}

type statisticsEnvelope struct {
	Response []struct {
		Team       teamRef `json:"team"`
		Statistics []struct {
			Type  string    `json:"type"`
			Value statValue `json:"value"`
		} `json:"statistics"`
	} `json:"response"`
}

// statValue accepts the provider's mixed encodings: numbers, numeric strings,
// percentages and null.
type statValue struct {
	raw string
	set bool
}

func (v *statValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = statValue{}
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := sonic.Unmarshal(data, &text); err != nil {
			return err
		}
		*v = statValue{raw: strings.TrimSpace(text), set: true}
		return nil
	}
	*v = statValue{raw: string(data), set: true}
	return nil
}

func (v statValue) float() (*float64, error) {
	if !v.set || v.raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSuffix(v.raw, "%"), 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type predictionsEnvelope struct {
	Response []struct {
		Predictions struct {
			Advice  string `json:"advice"`
			Percent struct {
				Home string `json:"home"`
				Draw string `json:"draw"`
				Away string `json:"away"`
			} `json:"percent"`
		} `json:"predictions"`
		Comparison struct {
			Form  comparisonPair `json:"form"`
			Att   comparisonPair `json:"att"`
			Def   comparisonPair `json:"def"`
			H2H   comparisonPair `json:"h2h"`
			Goals comparisonPair `json:"goals"`
			Total comparisonPair `json:"total"`
		} `json:"comparison"`
	} `json:"response"`
}

type comparisonPair struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// errorEnvelope covers both shapes of "errors": an empty array on success and
// an object keyed by error kind on failure.
type errorEnvelope struct {
	Errors map[string]string
}

func (e *errorEnvelope) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Errors sonicRaw `json:"errors"`
	}
	if err := sonic.Unmarshal(data, &envelope); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(envelope.Errors)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	out := map[string]string{}
	if err := sonic.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	e.Errors = out
	return nil
}

func (e errorEnvelope) messages() []string {
	out := make([]string, 0, len(e.Errors))
	for key, value := range e.Errors {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, key+": "+value)
	}
	sort.Strings(out)
	return out
}

type sonicRaw []byte

func (r *sonicRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

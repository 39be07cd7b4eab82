package models

import (
	"encoding/json"
	"testing"

	"github.com/hyperjump/gatherings/internal/query"
)

func TestSearchRequest_Decode(t *testing.T) {
	body := `{"query":"cafe","order":" name ","limit":5,"wifi":true,"include_closed":true,"skip_old":true,"color":"blue"}`
	var req SearchRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
	if req.Query != "cafe" || req.Order != "name" {
		t.Errorf("got %+v", req)
	}
	if req.Limit == nil || *req.Limit != 5 {
		t.Errorf("limit: got %v", req.Limit)
	}
	if !req.Wifi || !req.IncludeClosed || !req.SkipOld {
		t.Errorf("flags not decoded: %+v", req.Options)
	}
	q := req.SearchQuery()
	if q.Text != "cafe" || q.Options.Order != "name" {
		t.Errorf("SearchQuery() = %+v", q)
	}
}

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr bool
	}{
		{"empty query is valid", SearchRequest{}, false},
		{"plain order", SearchRequest{Query: "x"}, false},
		{"control characters", SearchRequest{Query: "x", Options: query.Options{Order: "na\nme"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearchRequest_LimitAbsent(t *testing.T) {
	var req SearchRequest
	if err := json.Unmarshal([]byte(`{"query":"x"}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.Limit != nil {
		t.Errorf("absent limit should stay nil, got %d", *req.Limit)
	}
}

func TestSearchRequest_CamelCaseAliases(t *testing.T) {
	var req SearchRequest
	if err := json.Unmarshal([]byte(`{"query":"x","includeClosed":true,"skipOld":true}`), &req); err != nil {
		t.Fatal(err)
	}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
	if !req.IncludeClosed || !req.SkipOld {
		t.Errorf("aliases not applied: %+v", req.Options)
	}
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Mirrors the shape the collection endpoints decode.
type addRequestShape struct {
	TableName string `json:"tableName" validate:"required,len=16,hexadecimal,lowercase"`
	Item      struct {
		ID       string `json:"id" validate:"required"`
		NickName string `json:"nickName" validate:"required"`
	} `json:"item"`
}

func TestProperty_MissingRequiredFieldsAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a request passes only with every required field present", prop.ForAll(
		func(includeTable bool, includeID bool, includeNick bool) bool {
			item := make(map[string]interface{})
			if includeID {
				item["id"] = "k1"
			}
			if includeNick {
				item["nickName"] = "bob"
			}

			reqMap := map[string]interface{}{"item": item}
			if includeTable {
				reqMap["tableName"] = "0123456789abcdef"
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/addItemsToCollection", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var decoded addRequestShape
			err := DecodeAndValidate(req, &decoded)

			if includeTable && includeID && includeNick {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestMalformedCollectionNamesAreRejected(t *testing.T) {
	bad := []string{"short", "0123456789ABCDEF", "0123456789abcdeg", "0123456789abcdef0"}

	for _, name := range bad {
		body, _ := json.Marshal(map[string]interface{}{
			"tableName": name,
			"item":      map[string]interface{}{"id": "k1", "nickName": "bob"},
		})
		req := httptest.NewRequest("POST", "/addItemsToCollection", bytes.NewReader(body))

		var decoded addRequestShape
		if err := DecodeAndValidate(req, &decoded); err == nil {
			t.Errorf("tableName %q should fail validation", name)
		}
	}
}

func TestFormatValidationErrorsNamesFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/addItemsToCollection", bytes.NewReader([]byte(`{}`)))

	var decoded addRequestShape
	err := DecodeAndValidate(req, &decoded)
	if err == nil {
		t.Fatal("expected validation failure")
	}

	fields := map[string]bool{}
	for _, ve := range FormatValidationErrors(err) {
		fields[ve.Field] = true
	}
	for _, want := range []string{"TableName", "ID", "NickName"} {
		if !fields[want] {
			t.Errorf("expected a validation error for field %s, got %v", want, fields)
		}
	}
}

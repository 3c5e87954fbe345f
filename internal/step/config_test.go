package step

import (
	"testing"
)

func TestDecodeConfig(t *testing.T) {
	c, err := DecodeConfig(map[string]interface{}{
		"relative.path":         "/x",
		"http.method":           "post",
		"http.headers":          "A: 1",
		"parameter.replacement": "true",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.RelativePath != "/x" || c.HTTPMethod != "post" || c.HTTPHeaders != "A: 1" || !c.ParameterReplacement {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.BodyFrom != "Message" || c.RunWhen != "PER_MESSAGE" || c.Encoding != "UTF-8" {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.PerUnitOfWork() || !c.BodyFromMessage() {
		t.Fatalf("unexpected derived flags")
	}
}

func TestDecodeConfig_BadType(t *testing.T) {
	if _, err := DecodeConfig(map[string]interface{}{"parameter.replacement": []int{1}}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestConfig_PerUnitOfWorkCaseInsensitive(t *testing.T) {
	if !(Config{RunWhen: " per_unit_of_work "}).PerUnitOfWork() {
		t.Fatalf("expected per unit of work")
	}
}

package models

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonTag extracts the json tag from a struct field.
func jsonTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	require.True(t, ok, "%s.%s: field not found", typ.Name(), fieldName)
	return f.Tag.Get("json")
}

// assertJSONTag checks that a struct field's json tag equals the expected value.
func assertJSONTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	assert.Equal(t, expected, jsonTag(t, typ, fieldName), "%s.%s json tag", typ.Name(), fieldName)
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	require.True(t, ok, "%s.%s: field not found", typ.Name(), fieldName)
	assert.Equal(t, expectedType, f.Type.String(), "%s.%s type", typ.Name(), fieldName)
}

func TestProject_Fields(t *testing.T) {
	typ := reflect.TypeOf(Project{})
	assertJSONTag(t, typ, "ClientID", "client_id")
	assertJSONTag(t, typ, "ActiveDepartments", "active_departments")
	assertJSONTag(t, typ, "CurrentStep", "current_step")
	assertJSONTag(t, typ, "Budget", "budget,omitempty")
	assertFieldType(t, typ, "Budget", "*float64")
	assertFieldType(t, typ, "Departments", "[]models.Department")
}

func TestDepartment_Fields(t *testing.T) {
	typ := reflect.TypeOf(Department{})
	assertJSONTag(t, typ, "CompletionPercentage", "completion_percentage,omitempty")
	assertJSONTag(t, typ, "IsEnabled", "is_enabled")
	assertFieldType(t, typ, "CompletionPercentage", "*int")
	assertFieldType(t, typ, "Glyph", "models.Glyph")
}

func TestChatMessage_KindSerializesAsType(t *testing.T) {
	data, err := json.Marshal(ChatMessage{ID: "m1", Sender: SenderUser, Kind: KindArtifact})
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"type":"artifact"`, "kind serializes as type")
	assert.NotContains(t, s, "department_id", "empty department id is omitted")
}

func TestProjectStatus_Valid(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectPaused} {
		assert.True(t, s.Valid(), "%q should be valid", s)
	}
	for _, s := range []ProjectStatus{"", "done", "In-Progress"} {
		assert.False(t, s.Valid(), "%q should be invalid", s)
	}
}

func TestDepartmentStatus_Valid(t *testing.T) {
	for _, s := range []DepartmentStatus{DepartmentPending, DepartmentInProgress, DepartmentCompleted, DepartmentDisabled} {
		assert.True(t, s.Valid(), "%q should be valid", s)
	}
	assert.False(t, DepartmentStatus("blocked").Valid())
}

func TestDepartment_CloneIsDeep(t *testing.T) {
	pct := 30
	d := Department{
		ID:                   "research",
		Artifacts:            []string{"Market Report"},
		Tasks:                []string{"interviews"},
		CompletionPercentage: &pct,
	}
	c := d.Clone()
	c.Artifacts[0] = "changed"
	c.Tasks[0] = "changed"
	*c.CompletionPercentage = 90

	assert.Equal(t, []string{"Market Report"}, d.Artifacts)
	assert.Equal(t, []string{"interviews"}, d.Tasks)
	assert.Equal(t, 30, *d.CompletionPercentage)
}

func TestDepartment_CloneKeepsNilTasks(t *testing.T) {
	c := Department{}.Clone()
	assert.Nil(t, c.Tasks)
	assert.Nil(t, c.CompletionPercentage)
	assert.NotNil(t, c.Artifacts, "clone always has an artifacts slice")
}

func TestClientPatch_Apply(t *testing.T) {
	c := Client{Name: "Ada", Email: "ada@example.com", Company: "Engines"}
	email := "ada@lovelace.dev"
	empty := ""
	ClientPatch{Email: &email, Company: &empty}.Apply(&c)

	assert.Equal(t, "Ada", c.Name, "nil fields are left untouched")
	assert.Equal(t, email, c.Email)
	assert.Empty(t, c.Company, "an explicit empty value clears the field")
}

func TestStats_Pending(t *testing.T) {
	s := Stats{TotalDepartments: 10, CompletedDepartments: 2, InProgressDepartments: 1}
	assert.Equal(t, 7, s.Pending())
}

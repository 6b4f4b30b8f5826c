package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementsCoverTables(t *testing.T) {
	stmts := Statements()
	assert.Len(t, stmts, 14)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}

func TestTasksCascadeWithProject(t *testing.T) {
	var tasks string
	for _, s := range Statements() {
		if strings.Contains(s, "EXISTS tasks") {
			tasks = s
		}
	}
	assert.Contains(t, tasks, "REFERENCES projects(id) ON DELETE CASCADE")
}

func TestSchemaDeclaresUniqueConstraints(t *testing.T) {
	for _, name := range []string{
		"uq_accounts_email",
		"uq_courses_name",
		"uq_modules_course_position",
		"uq_enrollments_student_course",
		"uq_vehicles_plate",
		"uq_ride_requests_ride_passenger",
		"uq_refresh_tokens_hash",
		"uq_ratings_ride_rater_rated",
	} {
		assert.Contains(t, schema, name)
	}
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useDefaultCalendar(t *testing.T) {
	t.Setenv("SLA_BUSINESS_START_HOUR", "9")
	t.Setenv("SLA_BUSINESS_END_HOUR", "17")
	t.Setenv("SLA_WORK_DAYS", "1,2,3,4,5")
	t.Setenv("SLA_TIMEZONE", "UTC")
	t.Setenv("SLA_CALENDAR_FILE", "")
	t.Setenv("TICKET_SEQUENCE_BACKEND", "postgres")
}

func TestPriorityCommand(t *testing.T) {
	out, err := run(t, "priority", "--impact", "medium", "--urgency", "critical")
	require.NoError(t, err)
	assert.Equal(t, "high\n", out)

	_, err = run(t, "priority", "--impact", "severe", "--urgency", "low")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid impact "severe"`)

	_, err = run(t, "priority", "--impact", "low")
	require.Error(t, err)
}

func TestDeadlineCommandUsesPriorityTargets(t *testing.T) {
	useDefaultCalendar(t)

	out, err := run(t, "deadline", "--priority", "high", "--start", "2024-03-04T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "response:   2024-03-04T10:30:00Z\nresolution: 2024-03-05T10:00:00Z\n", out)
}

func TestDeadlineCommandExplicitMinutes(t *testing.T) {
	useDefaultCalendar(t)

	out, err := run(t, "deadline", "--minutes", "60", "--start", "2024-03-08T16:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11T09:30:00Z\n", out)

	out, err = run(t, "deadline", "--minutes", "60", "--wall-clock", "--start", "2024-03-08T16:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-08T17:30:00Z\n", out)

	_, err = run(t, "deadline", "--start", "yesterday")
	require.Error(t, err)
}

func TestTokenCommandMintsParsableToken(t *testing.T) {
	useDefaultCalendar(t)
	t.Setenv("AUTH_JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "--sub", "agent-1", "--org", "org-1", "--role", "team_lead")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "expires: "))

	claims, err := auth.NewTokenManager("cli-secret", 60).ParseToken(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.Subject)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, domain.StaffRoleTeamLead, claims.Role)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	useDefaultCalendar(t)

	_, err := run(t, "token", "--sub", "agent-1", "--org", "org-1", "--role", "owner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid role "owner"`)
}

func TestMigrateRequiresDSN(t *testing.T) {
	useDefaultCalendar(t)
	t.Setenv("POSTGRES_DSN", "")

	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN is required")
}

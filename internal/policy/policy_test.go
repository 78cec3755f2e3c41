package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formacademy/formacademy-api/internal/models"
)

func TestTableDefaultDeniesTrainerContent(t *testing.T) {
	table := NewTable(Options{})

	assert.True(t, table.Allows(models.RoleAdmin, CapManageContent))
	assert.True(t, table.Allows(models.RoleSubAdmin, CapManageContent))
	assert.False(t, table.Allows(models.RoleTrainer, CapManageContent))
	assert.False(t, table.Allows(models.RoleStudent, CapManageContent))
}

func TestTableTrainerContentOption(t *testing.T) {
	table := NewTable(Options{TrainerContent: true})

	assert.True(t, table.Allows(models.RoleTrainer, CapManageContent))
	assert.True(t, table.Allows(models.RoleTrainer, CapManageCourses))
	assert.False(t, table.Allows(models.RoleStudent, CapManageContent))
}

func TestTableViewAndProgress(t *testing.T) {
	table := NewTable(Options{})

	assert.True(t, table.Allows(models.RoleStudent, CapViewContent))
	assert.True(t, table.Allows(models.RoleStudent, CapTrackProgress))
	assert.False(t, table.Allows(models.RoleTrainer, CapTrackProgress))
	assert.False(t, table.Allows(models.RoleStudent, CapManageUsers))
}

func TestTableUnknownCapability(t *testing.T) {
	table := NewTable(Options{})

	assert.False(t, table.Allows(models.RoleAdmin, Capability("unknown")))
}

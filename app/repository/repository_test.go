package repository

import (
	"errors"
	"testing"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/internal/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepositories(t *testing.T) (*gorm.DB, *Repositories) {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	return db, NewFactory(db).GetRepositories()
}

func TestParentRepository(t *testing.T) {
	_, repos := setupRepositories(t)

	parent, err := models.NewParent("Nino", "+995555000111", "secret-pass")
	require.NoError(t, err)
	require.NoError(t, repos.Parent.Create(parent))
	require.NotZero(t, parent.ID)

	byPhone, err := repos.Parent.GetByMobilePhone(" +995555000111 ")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, byPhone.ID)
	assert.True(t, byPhone.CheckPassword("secret-pass"))
	assert.False(t, byPhone.CheckPassword("wrong"))

	byID, err := repos.Parent.GetByID(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nino", byID.Name)

	_, err = repos.Parent.GetByID(parent.ID + 100)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	dup, err := models.NewParent("Other", "+995555000111", "secret-pass")
	require.NoError(t, err)
	assert.Error(t, repos.Parent.Create(dup))
}

func TestSubjectRepository(t *testing.T) {
	db, repos := setupRepositories(t)

	require.NoError(t, repos.Subject.Create(&models.Subject{Name: "Math", Price: decimal.RequireFromString("50.00"), IsActive: true}))
	require.NoError(t, repos.Subject.Create(&models.Subject{Name: "Art", Price: decimal.RequireFromString("20.00"), IsActive: true}))
	hidden := &models.Subject{Name: "History", Price: decimal.RequireFromString("30.00"), IsActive: true}
	require.NoError(t, repos.Subject.Create(hidden))
	// is_active has a column default, so false has to be written explicitly
	require.NoError(t, db.Model(hidden).Update("is_active", false).Error)

	active, err := repos.Subject.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Art", active[0].Name)
	assert.Equal(t, "Math", active[1].Name)

	got, err := repos.Subject.GetByID(hidden.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("30")))
}

func TestChildRepository(t *testing.T) {
	_, repos := setupRepositories(t)

	parent, err := models.NewParent("Nino", "+995555000111", "secret-pass")
	require.NoError(t, err)
	require.NoError(t, repos.Parent.Create(parent))

	code := "482913"
	child := &models.Child{ParentID: parent.ID, Name: "Luka", Grade: 4, OTPCode: &code}
	require.NoError(t, repos.Child.Create(child))

	byCode, err := repos.Child.GetByOTP("482913")
	require.NoError(t, err)
	assert.Equal(t, child.ID, byCode.ID)

	used, err := repos.Child.ConsumeOTP(child.ID, "482913")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = repos.Child.ConsumeOTP(child.ID, "482913")
	require.NoError(t, err)
	assert.False(t, used)

	_, err = repos.Child.GetByOTP("482913")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	reloaded, err := repos.Child.GetByID(child.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.OTPCode)
	assert.Equal(t, parent.ID, reloaded.ParentID)
}

func TestGradeAndTopicRepositories(t *testing.T) {
	_, repos := setupRepositories(t)

	first := &models.Grade{Level: "1"}
	second := &models.Grade{Level: "2"}
	require.NoError(t, repos.Grade.Create(first))
	require.NoError(t, repos.Grade.Create(second))

	grades, err := repos.Grade.List()
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "1", grades[0].Level)

	math := &models.Subject{Name: "Math", Price: decimal.RequireFromString("50.00"), IsActive: true}
	require.NoError(t, repos.Subject.Create(math))
	require.NoError(t, repos.Topic.Create(&models.Topic{SubjectID: math.ID, GradeID: &first.ID, Name: "Counting"}))
	require.NoError(t, repos.Topic.Create(&models.Topic{SubjectID: math.ID, GradeID: &second.ID, Name: "Fractions"}))
	require.NoError(t, repos.Topic.Create(&models.Topic{SubjectID: math.ID, Name: "Puzzles"}))

	all, err := repos.Topic.ListBySubject(math.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forSecond, err := repos.Topic.ListBySubject(math.ID, second.ID)
	require.NoError(t, err)
	require.Len(t, forSecond, 1)
	assert.Equal(t, "Fractions", forSecond[0].Name)
}

func TestFactoryGetters(t *testing.T) {
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	factory := NewFactory(db)

	assert.Same(t, factory.GetRepositories(), factory.GetRepositories())
	assert.NotNil(t, factory.GetParentRepository())
	assert.NotNil(t, factory.GetChildRepository())
	assert.NotNil(t, factory.GetSubjectRepository())
	assert.NotNil(t, factory.GetGradeRepository())
	assert.NotNil(t, factory.GetTopicRepository())
}

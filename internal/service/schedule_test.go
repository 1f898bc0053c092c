package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsend/sequence-engine/internal/model"
	"github.com/apexsend/sequence-engine/internal/service"
)

func daysStep(order, days int) model.Step {
	return model.Step{
		ID:          order,
		StepOrder:   order,
		DelayAmount: days,
		DelayUnit:   model.DelayUnitDays,
		Content:     model.StepContent{Kind: model.ChannelSMS, Text: "hi"},
	}
}

func TestComputeScheduleCumulative(t *testing.T) {
	enrolledAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []model.Step{daysStep(1, 1), daysStep(2, 2), daysStep(3, 3)}

	times := service.ComputeSchedule(model.DelayModeCumulative, steps, enrolledAt)

	require.Len(t, times, 3)
	assert.Equal(t, enrolledAt.AddDate(0, 0, 1), times[0])
	assert.Equal(t, enrolledAt.AddDate(0, 0, 3), times[1])
	assert.Equal(t, enrolledAt.AddDate(0, 0, 6), times[2])

	for i := 1; i < len(times); i++ {
		assert.True(t, times[i].After(times[i-1]), "send times must ascend")
	}
}

func TestComputeScheduleIndependent(t *testing.T) {
	enrolledAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []model.Step{daysStep(1, 1), daysStep(2, 2), daysStep(3, 3)}

	times := service.ComputeSchedule(model.DelayModeIndependent, steps, enrolledAt)

	require.Len(t, times, 3)
	assert.Equal(t, enrolledAt.AddDate(0, 0, 1), times[0])
	assert.Equal(t, enrolledAt.AddDate(0, 0, 2), times[1])
	assert.Equal(t, enrolledAt.AddDate(0, 0, 3), times[2])
}

func TestComputeScheduleUnitsAndZeroDelay(t *testing.T) {
	enrolledAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []model.Step{
		{StepOrder: 1, DelayAmount: 0, DelayUnit: model.DelayUnitHours},
		{StepOrder: 2, DelayAmount: 30, DelayUnit: model.DelayUnitMinutes},
		{StepOrder: 3, DelayAmount: 2, DelayUnit: model.DelayUnitHours},
	}

	times := service.ComputeSchedule(model.DelayModeCumulative, steps, enrolledAt)

	assert.Equal(t, enrolledAt, times[0], "zero delay schedules at enrollment time exactly")
	assert.Equal(t, enrolledAt.Add(30*time.Minute), times[1])
	assert.Equal(t, enrolledAt.Add(2*time.Hour+30*time.Minute), times[2])
}

func TestValidateSteps(t *testing.T) {
	good := []model.Step{
		{StepOrder: 1, DelayAmount: 0, DelayUnit: "hours", Content: model.StepContent{Kind: "sms", Text: "a"}},
		{StepOrder: 2, DelayAmount: 1, DelayUnit: "days", Content: model.StepContent{Kind: "sms", Text: "b"}},
	}
	assert.NoError(t, model.ValidateSteps(model.ChannelSMS, good))

	assert.Error(t, model.ValidateSteps(model.ChannelSMS, nil), "empty sequences are rejected")

	gapped := []model.Step{
		{StepOrder: 1, DelayUnit: "hours", Content: model.StepContent{Kind: "sms", Text: "a"}},
		{StepOrder: 3, DelayUnit: "hours", Content: model.StepContent{Kind: "sms", Text: "b"}},
	}
	assert.Error(t, model.ValidateSteps(model.ChannelSMS, gapped), "orders must be contiguous")

	negative := []model.Step{
		{StepOrder: 1, DelayAmount: -1, DelayUnit: "hours", Content: model.StepContent{Kind: "sms", Text: "a"}},
	}
	assert.Error(t, model.ValidateSteps(model.ChannelSMS, negative))

	tooMany := make([]model.Step, model.MaxSMSSteps+1)
	for i := range tooMany {
		tooMany[i] = model.Step{StepOrder: i + 1, DelayUnit: "hours", Content: model.StepContent{Kind: "sms", Text: "x"}}
	}
	assert.Error(t, model.ValidateSteps(model.ChannelSMS, tooMany), "sms sequences are bounded")

	noSubject := []model.Step{
		{StepOrder: 1, DelayUnit: "hours", Content: model.StepContent{Kind: "email", Text: "body"}},
	}
	assert.Error(t, model.ValidateSteps(model.ChannelEmail, noSubject))
}

func TestRenderTemplate(t *testing.T) {
	rec := &model.Recipient{FirstName: "Alice", LastName: "Smith", Location: "Nairobi"}

	body := service.RenderStepBody(model.StepContent{Kind: "sms", Text: "Hi {first_name} from {location}!"}, rec)
	assert.Equal(t, "Hi Alice from Nairobi!", body)

	empty := &model.Recipient{}
	body = service.RenderStepBody(model.StepContent{Kind: "sms", Text: "Hi {first_name}"}, empty)
	assert.Equal(t, "Hi <unknown>", body)

	subject := service.RenderStepSubject(model.StepContent{Kind: "email", Subject: "Welcome, {first_name}"}, rec)
	assert.Equal(t, "Welcome, Alice", subject)

	assert.Empty(t, service.RenderStepSubject(model.StepContent{Kind: "sms", Text: "x"}, rec))
}

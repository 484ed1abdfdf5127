package flow

import "github.com/PaintKaro/LeadPipe/internal/models"

// Follow-up questions for absent lead fields, in presentation order.
const (
	questionCustomer = "May I have your name and phone number so our team can reach you?"
	questionLocation = "Which area or city is the site located in?"
	questionJobType  = "What kind of work do you need — fresh painting, repainting, waterproofing, or texture?"
	questionUrgency  = "When would you like the work to start — immediately, this month, or are you flexible?"
)

// MissingFields is the missing-field resolver output: a presence map and the
// follow-up questions in fixed order (customer, location, job type, urgency).
type MissingFields struct {
	Missing   map[string]bool
	Questions []string
}

// ComputeMissingFields determines which required lead fields are absent from
// the analysis and produces the corresponding follow-up questions.
//
// For the GENERATE_QUOTE_OPTIONS intent all questions are suppressed: that flow
// assumes the job context already exists. For every other intent the four
// checks run independently; callers must preserve question order when
// presenting more than one. Pure function.
func ComputeMissingFields(analysis *models.LeadAnalysis, intent models.HighLevelIntent) MissingFields {
	result := MissingFields{Missing: map[string]bool{}}

	if intent == models.IntentGenerateQuoteOptions {
		return result
	}
	if analysis == nil {
		analysis = &models.LeadAnalysis{}
	}

	if analysis.CustomerName == "" && analysis.CustomerPhone == "" {
		result.Missing["customer_name"] = true
		result.Missing["customer_phone"] = true
		result.Questions = append(result.Questions, questionCustomer)
	}
	if analysis.Location == "" {
		result.Missing["location"] = true
		result.Questions = append(result.Questions, questionLocation)
	}
	if analysis.JobType == "" || analysis.JobType == models.JobTypeUnknown {
		result.Missing["job_type"] = true
		result.Questions = append(result.Questions, questionJobType)
	}
	if analysis.Urgency == "" || analysis.Urgency == models.UrgencyUnknown {
		result.Missing["urgency"] = true
		result.Questions = append(result.Questions, questionUrgency)
	}

	return result
}

// Package advice turns an assessment result into the copy shown alongside it:
// a tier summary, a disclaimer and personalised recommendations.
package advice

import (
	"fmt"
	"strings"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// Disclaimer accompanies every result shown to a user.
const Disclaimer = "This is not a diagnosis. For personalised advice, consult a healthcare professional."

// Welcome introduces the assessment.
const Welcome = "This tool helps you understand your risk of developing type 2 diabetes. " +
	"It's not a diagnosis, but it can guide you towards healthier choices."

// Summary returns the explanatory copy for a tier.
func Summary(t model.Tier) string {
	switch t {
	case model.TierLow:
		return "You have a low risk of developing type 2 diabetes in the next 10 years. " +
			"Continue to maintain a healthy lifestyle."
	case model.TierMedium:
		return "Your assessment indicates a medium risk of developing type 2 diabetes. " +
			"You have some risk factors; take this seriously and consider lifestyle changes to reduce your risk."
	case model.TierHigh:
		return "Your risk of developing type 2 diabetes is high. " +
			"Please consult a healthcare professional for further evaluation and personalised advice."
	}
	return ""
}

// Section is one titled group of recommendations.
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Plan is the full set of recommendations for one result.
type Plan struct {
	Tier        model.Tier `json:"tier"`
	Probability float64    `json:"probability"`
	Summary     string     `json:"summary"`
	Lifestyle   []Section  `json:"lifestyle"`
	Dietary     []string   `json:"dietary"`
	Disclaimer  string     `json:"disclaimer"`
}

var dietary = []string{
	"Whole grains: choose brown rice, quinoa and whole wheat bread over refined grains.",
	"Fruits and vegetables: aim for at least five servings per day.",
	"Lean protein: prefer poultry, fish, beans and lentils.",
	"Limit sugary drinks, processed foods and saturated fats.",
}

// Build assembles the plan for r, tailoring the lifestyle sections to the
// answers in its profile.
func Build(r model.AssessmentResult) Plan {
	p := r.Profile
	plan := Plan{
		Tier:        r.Tier,
		Probability: r.Probability,
		Summary:     Summary(r.Tier),
		Dietary:     append([]string(nil), dietary...),
		Disclaimer:  Disclaimer,
	}

	if p.RegularExercise {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Regular Physical Activity",
			Items: []string{
				"Keep up your current exercise routine.",
				"Add variety with different types of activity.",
				"Track your progress and set new fitness goals.",
			},
		})
	} else {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Regular Physical Activity",
			Items: []string{
				"Aim for at least 150 minutes of moderate-intensity activity per week, such as brisk walking.",
				"Include muscle-strengthening activities on 2 or more days per week.",
				"Start slowly and increase duration and intensity gradually.",
			},
		})
	}

	sleep := Section{
		Title: "Adequate Sleep",
		Items: []string{
			"Aim for 7-9 hours of quality sleep each night.",
			"Keep a consistent sleep schedule.",
		},
	}
	if p.SleepHours > 0 && p.SleepHours < 7 {
		sleep.Items = append(sleep.Items,
			fmt.Sprintf("You reported about %.1f hours a night; a relaxing bedtime routine can help you get more.", p.SleepHours))
	}
	plan.Lifestyle = append(plan.Lifestyle, sleep)

	if p.Stress == model.StressHigh {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Stress Management",
			Items: []string{
				"Practice stress-reduction techniques like meditation, yoga or deep breathing.",
				"Consider counselling or therapy for persistent stress.",
				"Make time for hobbies and activities you enjoy.",
			},
		})
	} else {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Stress Management",
			Items: []string{
				"Continue managing stress with healthy coping strategies.",
				"Stay connected with friends and family.",
			},
		})
	}

	if p.BMI > 25 {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Weight Management",
			Items: []string{
				"Work towards a healthy weight through a balanced diet and regular activity.",
				"Consider talking to a healthcare provider or registered dietitian.",
				"Aim for gradual, sustainable weight loss.",
			},
		})
	}

	if p.Smoking == model.SmokingCurrent {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Stop Smoking",
			Items: []string{
				"Smoking raises the risk of type 2 diabetes; ask your doctor or pharmacist about support to quit.",
			},
		})
	}

	if r.Tier == model.TierHigh {
		plan.Lifestyle = append(plan.Lifestyle, Section{
			Title: "Medical Follow-up",
			Items: []string{
				"Consult your healthcare provider for further evaluation.",
				"Regular check-ups and monitoring are recommended.",
				"Discuss preventive measures and early intervention.",
			},
		})
	}

	return plan
}

// Text renders the plan as plain text for terminals and as the narration
// fallback.
func (p Plan) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s risk (%.0f%%)\n%s\n", p.Tier, p.Probability*100, p.Summary)

	b.WriteString("\nLifestyle recommendations\n")
	for _, s := range p.Lifestyle {
		fmt.Fprintf(&b, "  %s\n", s.Title)
		for _, item := range s.Items {
			fmt.Fprintf(&b, "    - %s\n", item)
		}
	}

	b.WriteString("\nDietary recommendations\n")
	for _, item := range p.Dietary {
		fmt.Fprintf(&b, "  - %s\n", item)
	}

	fmt.Fprintf(&b, "\n%s\n", p.Disclaimer)
	return b.String()
}

// Titles lists the lifestyle section titles in order.
func (p Plan) Titles() []string {
	out := make([]string, len(p.Lifestyle))
	for i, s := range p.Lifestyle {
		out[i] = s.Title
	}
	return out
}

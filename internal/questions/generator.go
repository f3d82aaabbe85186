package questions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ainewshub/ainewshub/internal/storage"
)

const (
	// QuestionsPerSet is the fixed size of every generated question set.
	QuestionsPerSet = 8

	// keywordQuestionCount is how many questions are derived from the
	// week's extracted keywords.
	keywordQuestionCount = 4
)

var targetLevels = []string{"Beginner", "Intermediate", "Advanced"}

// keywordTemplates produce one question per keyword. The correct answer is
// always the second option.
var keywordTemplates = []struct {
	text    string
	options [4]string
}{
	{
		text: "The term %q has appeared frequently in recent AI news. In that context it most likely refers to:",
		options: [4]string{
			"A deprecated networking protocol",
			"A concept or technology discussed in current AI development",
			"A spreadsheet formula",
			"A database migration tool",
		},
	},
	{
		text: "An article mentions %q in its headline. A reader following AI news would expect the article to cover:",
		options: [4]string{
			"Cooking techniques",
			"Developments related to AI models or tooling",
			"Automotive repair",
			"Real estate pricing",
		},
	},
	{
		text: "Which statement about %q is most consistent with how it is used in AI coverage?",
		options: [4]string{
			"It is unrelated to machine learning",
			"It is part of the current AI ecosystem vocabulary",
			"It refers to a citrus fruit",
			"It is a unit of distance",
		},
	},
	{
		text: "If you wanted to learn more about %q as covered in this week's news, the best starting point would be:",
		options: [4]string{
			"A gardening handbook",
			"Recent AI engineering articles and model release notes",
			"A medieval history textbook",
			"A tide chart",
		},
	},
}

// baseBank holds fixed questions asked regardless of the week's news.
var baseBank = []struct {
	text         string
	options      [4]string
	correctIndex int
	targetLevel  string
}{
	{
		text:         "What does LLM stand for?",
		options:      [4]string{"Large Language Model", "Linear Learning Machine", "Low Latency Memory", "Layered Logic Module"},
		correctIndex: 0,
		targetLevel:  "Beginner",
	},
	{
		text:         "What is a prompt in the context of AI models?",
		options:      [4]string{"A hardware component", "The text input given to a model to guide its output", "A type of neural network", "A database index"},
		correctIndex: 1,
		targetLevel:  "Beginner",
	},
	{
		text:         "What is retrieval-augmented generation (RAG) primarily used for?",
		options:      [4]string{"Compressing model weights", "Rendering images faster", "Grounding model answers in external documents", "Encrypting API traffic"},
		correctIndex: 2,
		targetLevel:  "Intermediate",
	},
	{
		text:         "What does fine-tuning a model mean?",
		options:      [4]string{"Continuing training on task-specific data", "Lowering the API price", "Reducing the context window", "Restarting the inference server"},
		correctIndex: 0,
		targetLevel:  "Intermediate",
	},
	{
		text:         "What problem does quantization address in model deployment?",
		options:      [4]string{"Prompt injection", "Memory and compute cost of inference", "Dataset licensing", "Network latency between regions"},
		correctIndex: 1,
		targetLevel:  "Advanced",
	},
	{
		text:         "In agentic systems, what is tool use?",
		options:      [4]string{"Manual data labeling", "A model invoking external functions or APIs to complete a task", "GPU overclocking", "Editing training data by hand"},
		correctIndex: 1,
		targetLevel:  "Advanced",
	},
	{
		text:         "What is the context window of a language model?",
		options:      [4]string{"The GUI panel showing logs", "The amount of text the model can consider at once", "The model's release schedule", "A browser extension"},
		correctIndex: 1,
		targetLevel:  "Beginner",
	},
	{
		text:         "What does RLHF refer to in model training?",
		options:      [4]string{"Reinforcement learning from human feedback", "Recursive layered hashing function", "Random local hyperparameter filtering", "Real-time low-frequency heuristics"},
		correctIndex: 0,
		targetLevel:  "Advanced",
	},
}

// Build assembles a full question set from the extracted keywords: one
// templated question per keyword up to the keyword budget, padded with
// base-bank questions to the fixed set size. Output is deterministic for a
// given keyword list.
func Build(keywords []string) ([]storage.Question, string, error) {
	if len(keywords) == 0 {
		keywords = baselineKeywords
	}

	var questions []storage.Question

	n := keywordQuestionCount
	if n > len(keywords) {
		n = len(keywords)
	}
	for i := 0; i < n; i++ {
		tpl := keywordTemplates[i%len(keywordTemplates)]
		optionsJSON, err := json.Marshal(tpl.options[:])
		if err != nil {
			return nil, "", fmt.Errorf("marshal options: %w", err)
		}
		questions = append(questions, storage.Question{
			Text:               fmt.Sprintf(tpl.text, keywords[i]),
			OptionsJSON:        string(optionsJSON),
			CorrectOptionIndex: 1,
			TargetLevel:        targetLevels[i%len(targetLevels)],
			SourceKeyword:      keywords[i],
		})
	}

	for i := 0; len(questions) < QuestionsPerSet && i < len(baseBank); i++ {
		q := baseBank[i]
		optionsJSON, err := json.Marshal(q.options[:])
		if err != nil {
			return nil, "", fmt.Errorf("marshal options: %w", err)
		}
		questions = append(questions, storage.Question{
			Text:               q.text,
			OptionsJSON:        string(optionsJSON),
			CorrectOptionIndex: q.correctIndex,
			TargetLevel:        q.targetLevel,
		})
	}

	sourceKeywords := strings.Join(keywords[:n], ",")
	return questions, sourceKeywords, nil
}

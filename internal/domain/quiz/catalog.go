package quiz

import "strings"

// BankQuestion is a catalog question including its correct option.
type BankQuestion struct {
	ID      string   `yaml:"id"`
	Prompt  string   `yaml:"prompt"`
	Options []string `yaml:"options"`
	Correct int      `yaml:"correct"`
}

// Catalog maps skill names (case-insensitive) to ordered question banks.
type Catalog map[string][]BankQuestion

func catalogKey(skill string) string { return strings.ToLower(strings.TrimSpace(skill)) }

// DefaultCatalog returns the reference question banks.
func DefaultCatalog() Catalog {
	return Catalog{
		"javascript": {
			{
				ID:      "js-1",
				Prompt:  "What is the correct way to declare a variable in JavaScript?",
				Options: []string{"var myVariable = 5;", "variable myVariable = 5;", "v myVariable = 5;", "declare myVariable = 5;"},
				Correct: 0,
			},
			{
				ID:      "js-2",
				Prompt:  "Which method is used to add an element to the end of an array?",
				Options: []string{"append()", "push()", "add()", "insert()"},
				Correct: 1,
			},
			{
				ID:      "js-3",
				Prompt:  "What does DOM stand for?",
				Options: []string{"Document Object Model", "Data Object Management", "Dynamic Object Method", "Document Oriented Model"},
				Correct: 0,
			},
		},
		"python": {
			{
				ID:      "py-1",
				Prompt:  "What is Python primarily used for?",
				Options: []string{"Only web development", "Data science, AI, web development, and more", "Only mobile app development", "Only game development"},
				Correct: 1,
			},
			{
				ID:      "py-2",
				Prompt:  "Which of the following is the correct way to create a list in Python?",
				Options: []string{"list = {1, 2, 3}", "list = (1, 2, 3)", "list = [1, 2, 3]", "list = <1, 2, 3>"},
				Correct: 2,
			},
			{
				ID:      "py-3",
				Prompt:  "Which keyword defines a function in Python?",
				Options: []string{"func", "def", "function", "lambda"},
				Correct: 1,
			},
		},
	}
}

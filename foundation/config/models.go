package config

type Config struct {
	Agents []Agent `yaml:"agents"`
}

// Agent is one voice agent profile selected by the ?agent= query parameter.
type Agent struct {
	Slug         string `yaml:"slug"`
	Name         string `yaml:"name"`
	Dir          string `yaml:"dir"`
	CustomerName string `yaml:"customer_name"`
	Language     string `yaml:"language"`
	PromptFile   string `yaml:"prompt_file"`
	Voice        string `yaml:"voice"`
}

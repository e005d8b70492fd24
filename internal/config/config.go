package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type ElectionConfig struct {
	ID    string `yaml:"id"`
	Code  string `yaml:"code"`
	Title string `yaml:"title"`
}

type HTTPConfig struct {
	BaseURL       string `yaml:"base_url"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	MaxRetries    int    `yaml:"max_retries"`
	RetryDelaySec int    `yaml:"retry_delay_sec"`
	UserAgent     string `yaml:"user_agent"`
}

type CrawlConfig struct {
	DownloadDir   string `yaml:"download_dir"`
	BaseDelayMS   int    `yaml:"base_delay_ms"`
	RegionDelayMS int    `yaml:"region_delay_ms"`
	MaxWorkers    int    `yaml:"max_workers"`
}

type HistoryConfig struct {
	Connection string `yaml:"connection"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type Config struct {
	Election ElectionConfig `yaml:"election"`
	HTTP     HTTPConfig     `yaml:"http"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	History  HistoryConfig  `yaml:"history"`
}

// Default mirrors the settings the crawler was tuned with against
// info.nec.go.kr. A yaml file only needs to override what differs.
func Default() *Config {
	return &Config{
		Election: ElectionConfig{
			ID:    "0020250603",
			Code:  "1",
			Title: "제21대 대통령선거",
		},
		HTTP: HTTPConfig{
			BaseURL:       "http://info.nec.go.kr",
			TimeoutSec:    30,
			MaxRetries:    3,
			RetryDelaySec: 2,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Crawl: CrawlConfig{
			DownloadDir:   "election_results",
			BaseDelayMS:   1000,
			RegionDelayMS: 2000,
			MaxWorkers:    3,
		},
		History: HistoryConfig{
			Database:   "election_crawler",
			Collection: "download_history",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ReportURL() string {
	return c.HTTP.BaseURL + "/electioninfo/electionInfo_report.xhtml"
}

func (c *Config) EntryPageURL() string {
	return fmt.Sprintf("%s/main/showDocument.xhtml?electionId=%s&topMenuId=VC&secondMenuId=VCCP08",
		c.HTTP.BaseURL, c.Election.ID)
}

func (c *Config) TownCodeURL() string {
	return c.HTTP.BaseURL + "/bizcommon/selectbox/selectbox_townCodeJson.json"
}

// statementIDs maps an election type code to the statement id the report
// endpoint expects. Unmapped codes fall back to the presidential statement.
var statementIDs = map[string]string{
	"1":  "VCCP08_#1",   // presidential
	"2":  "VCCP08_#2_1", // national assembly
	"3":  "VCCP08_#3",   // governor
	"4":  "VCCP08_#4",   // mayor
	"5":  "VCCP08_#5",   // metropolitan council
	"6":  "VCCP08_#6",   // basic council
	"7":  "VCCP08_#7_1", // overseas voting
	"8":  "VCCP08_#8",   // by-elections
	"9":  "VCCP08_#9",   // referendum
	"10": "VCCP08_#10",
	"11": "VCCP08_#11",
}

func StatementID(electionCode string) string {
	if id, ok := statementIDs[electionCode]; ok {
		return id
	}
	return "VCCP08_#1"
}

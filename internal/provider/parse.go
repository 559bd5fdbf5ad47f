package provider

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"prospector/internal/models"
)

// Page-state markers, matched case-insensitively against the fetched
// markdown before any field extraction.
var (
	captchaMarkers = []string{
		"security verification",
		"captcha",
		"prove you're not a robot",
	}
	notFoundMarkers = []string{
		"page not found",
		"this page doesn't exist",
		"profile is not available",
	}
	restrictedMarkers = []string{
		"sign in to view",
		"join now to view",
		"authwall",
	}
	rateLimitMarkers = []string{
		"too many requests",
		"unusual activity",
	}
)

var yearsPattern = regexp.MustCompile(`(?i)(\d+)\+?\s+years?`)

// ParseProfileMarkdown extracts profile fields from a page rendered as
// markdown. Challenge, not-found, sign-in and throttling pages are
// reported as errors whose messages carry the classification tokens.
func ParseProfileMarkdown(md string) (*models.ProfileData, error) {
	lower := strings.ToLower(md)

	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return nil, errors.New("captcha challenge detected")
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return nil, errors.New("profile not found (404)")
		}
	}
	for _, m := range restrictedMarkers {
		if strings.Contains(lower, m) {
			return nil, errors.New("access restricted (403): sign-in required")
		}
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return nil, errors.New("rate limit exceeded (429)")
		}
	}

	data := &models.ProfileData{}
	lines := strings.Split(md, "\n")
	section := ""

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "# "):
			if data.Name == "" {
				data.Name = strings.TrimSpace(strings.TrimPrefix(line, "# "))
				data.Headline = nextText(lines, i+1)
			}

		case strings.HasPrefix(line, "## "):
			section = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))

		case strings.HasPrefix(line, "### "):
			entry := strings.TrimSpace(strings.TrimPrefix(line, "### "))
			switch {
			case strings.HasPrefix(section, "experience"):
				if data.LatestPosition == "" {
					data.LatestPosition = entry
					data.LatestCompany = nextText(lines, i+1)
				}
				if data.CurrentPosition == "" {
					data.CurrentPosition = entry
					data.CurrentCompany = nextText(lines, i+1)
				}
			case strings.HasPrefix(section, "education"):
				if data.Education == "" {
					data.Education = entry
				}
			}

		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			if section == "skills" {
				data.Skills = append(data.Skills, strings.TrimSpace(line[2:]))
			}

		default:
			if v, ok := labeledValue(line, "location"); ok {
				data.Location = v
			} else if v, ok := labeledValue(line, "industry"); ok {
				data.Industry = v
			} else if section == "about" || section == "summary" {
				if data.Summary != "" {
					data.Summary += " "
				}
				data.Summary += line
			}
		}
	}

	if m := yearsPattern.FindStringSubmatch(md); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil {
			data.YearsOfExperience = years
		}
	}

	if data.Name == "" {
		return nil, errors.New("no profile content found in page")
	}
	return data, nil
}

// nextText returns the next non-empty, non-heading line at or after index i
func nextText(lines []string, i int) string {
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return ""
		}
		return line
	}
	return ""
}

// labeledValue matches lines like "Location: Berlin, Germany", with or
// without bold markers around the label
func labeledValue(line, label string) (string, bool) {
	cleaned := strings.ReplaceAll(line, "**", "")
	lower := strings.ToLower(cleaned)
	if !strings.HasPrefix(lower, label+":") {
		return "", false
	}
	return strings.TrimSpace(cleaned[len(label)+1:]), true
}

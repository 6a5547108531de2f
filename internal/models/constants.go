package models

const (
	EmailRegex       = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`
	LooseEmailRegex  = `\S+@\S+`
	PhoneRegex       = `\+?\d[\d\- ]{8,}`
	NamePrefixRegex  = `(?i)^(curriculum vitae|resume|cv|profile)\b[:\- ]*`
	NameWordRegex    = `^[A-Za-z.\-']+$`
	YearLetterRegex  = `(\d{4})([A-Za-z])`
	CaseBoundary     = `([a-z])([A-Z])`
	MonthPattern     = `Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec`
	CompanyRegex     = `(?i)(?:Company|Organization)\s*[:\-\.]?\s+(.*)`
	JobTitleRegex    = `(?i)(?:Job\s+(?:Title|Role)|Position|Role)\s*[:\-\.]?\s+(.*)`
	LocationRegex    = `(?i)(?:Location|Loc|Address)\s*[:\-\.]?\s+(.*)`
	CodeFenceRegex   = "(?s)```(?:json)?"
	ThinkTag         = `(?s)<think>.*?</think>`
	NotFound         = "Not found"
	Unknown          = "Unknown"
	ContextSeparator = "\n---\n"
)

var (
	// ExtractPromptTemplate is followed by the resume excerpt
	ExtractPromptTemplate = `
Extract from this resume:

1) Full Name
2) Email
3) Skills (professional/technical only)
4) Total years of professional experience

Rules:
- Skills must be short phrases, not sentences
- Return ONLY JSON
- Format:

{
  "name": "",
  "email": "",
  "skills": [],
  "experience_years": 0
}

Resume:
`

	ExtractInputTemplate = `
Name hint: %s
Email hint: %s

Skills + Technical Skills Section:
%s

Experience Section:
%s
`

	AnalysisPromptTemplate = `Analyze this job posting and provide a concise summary:

Job Title: %s
Company: %s
Location: %s

Job Description:
%s

Provide:
1. A brief 2-3 sentence description of the role
2. Required experience (years and type)
3. Key skills needed

Keep it concise and professional.`

	AnalysisSystemPrompt = "You are a job analyst. Provide clear, concise summaries."
)

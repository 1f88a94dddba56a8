package blueprint

// fieldSpec is the compact form blueprint fields are declared in.
type fieldSpec struct {
	key      string
	label    string
	typ      string
	required bool
	options  []string
}

type sectionSpec struct {
	key         string
	title       string
	description string
	fields      []fieldSpec
}

// Profession is a catalog entry as shown in the profession picker.
type Profession struct {
	Key   string `json:"value"`
	Label string `json:"label"`
}

// professions is the catalog in picker order.
var professions = []Profession{
	{Key: "hr_recruiting", Label: "HR & Recruiting"},
	{Key: "recruiter", Label: "Recruiter"},
	{Key: "teacher", Label: "Teacher"},
	{Key: "fitness_coach", Label: "Fitness Coach"},
	{Key: "therapist", Label: "Therapist"},
	{Key: "doctor", Label: "Doctor"},
	{Key: "photographer", Label: "Photographer"},
	{Key: "consultant", Label: "Consultant"},
	{Key: "lawyer", Label: "Lawyer"},
	{Key: "real_estate", Label: "Real Estate Agent"},
	{Key: "salon", Label: "Salon & Beauty"},
	{Key: "tax_advisor", Label: "Tax Advisor"},
	{Key: "financial_advisor", Label: "Financial Advisor"},
	{Key: "tutor", Label: "Tutor"},
	{Key: "event_planner", Label: "Event Planner"},
	{Key: "contractor", Label: "Contractor"},
	{Key: "coach_life", Label: "Life Coach"},
	{Key: "it_support", Label: "IT Support"},
	{Key: "repair_service", Label: "Repair Service"},
	{Key: "counselor", Label: "Counselor"},
	{Key: "notary", Label: "Notary"},
	{Key: "custom", Label: "Custom"},
}

var baseContactFields = []fieldSpec{
	{key: "full_name", label: "Full Name", typ: "text", required: true},
	{key: "email", label: "Email Address", typ: "email", required: true},
	{key: "phone", label: "Phone Number", typ: "phone"},
}

var baseBackgroundFields = []fieldSpec{
	{key: "years_experience", label: "Years of Experience", typ: "number"},
	{key: "experience_summary", label: "Professional Summary", typ: "textarea"},
	{key: "availability", label: "Availability / Schedule Preferences", typ: "textarea"},
	{key: "supporting_links", label: "Links to resume, portfolio or profiles", typ: "text"},
}

var hrRecruitingSections = []sectionSpec{
	{
		key:         "contact",
		title:       "Contact information",
		description: "Tell us how we can reach you.",
		fields: []fieldSpec{
			{key: "full_name", label: "Full Name", typ: "text", required: true},
			{key: "email", label: "Email Address", typ: "email", required: true},
			{key: "phone", label: "Phone Number", typ: "phone"},
			{key: "location", label: "Location", typ: "text"},
		},
	},
	{
		key:         "eligibility",
		title:       "Work authorization",
		description: "Let us know your current work authorization status.",
		fields: []fieldSpec{
			{key: "work_authorization", label: "Work authorization", typ: "select", required: true,
				options: []string{"Citizen/PR", "Open WP", "Employer-specific WP", "Requires sponsorship"}},
		},
	},
	{
		key:         "experience",
		title:       "Experience overview",
		description: "Share a quick snapshot of your background.",
		fields: []fieldSpec{
			{key: "years_experience", label: "Years of Experience", typ: "number"},
			{key: "relevant_experience", label: "Relevant experience summary", typ: "textarea"},
		},
	},
	{
		key:         "skills",
		title:       "Skills",
		description: "Highlight your core skills and tools.",
		fields: []fieldSpec{
			{key: "primary_skills", label: "Primary skills (comma-separated)", typ: "text", required: true},
			{key: "tools_technologies", label: "Tools or technologies", typ: "text"},
		},
	},
	{
		key:         "preferences",
		title:       "Preferences",
		description: "Share your availability and work preferences.",
		fields: []fieldSpec{
			{key: "availability", label: "Availability", typ: "select", required: true,
				options: []string{"Immediately", "1-2 weeks", "1 month", "Flexible"}},
			{key: "employment_type_preference", label: "Employment type preference", typ: "multi_select", required: true,
				options: []string{"Full-time", "Part-time", "Contract", "Temporary", "Casual/On-call", "Seasonal"}},
			{key: "work_arrangement_preference", label: "Work arrangement preference", typ: "select", required: true,
				options: []string{"On-site", "Hybrid", "Remote"}},
		},
	},
	{
		key:         "compensation",
		title:       "Compensation",
		description: "Optional compensation expectations.",
		fields: []fieldSpec{
			{key: "expected_pay", label: "Expected pay", typ: "text"},
		},
	},
	{
		key:         "links",
		title:       "Links",
		description: "Share a profile or portfolio link.",
		fields: []fieldSpec{
			{key: "linkedin_or_portfolio", label: "LinkedIn or portfolio link", typ: "text"},
		},
	},
}

var professionFields = map[string][]fieldSpec{
	"recruiter": {
		{key: "recruiting_focus", label: "Recruiting focus (industries, functions)", typ: "textarea"},
		{key: "ats_tools", label: "ATS / HR tools you have used", typ: "text"},
	},
	"teacher": {
		{key: "preferred_grade_levels", label: "Preferred grade levels", typ: "text"},
		{key: "teaching_certifications", label: "Teaching certifications / licenses", typ: "textarea", required: true},
		{key: "classroom_experience", label: "Classroom or special education experience", typ: "textarea"},
	},
	"fitness_coach": {
		{key: "training_focus", label: "Training focus or modalities", typ: "textarea"},
		{key: "fitness_certifications", label: "Fitness certifications", typ: "textarea"},
		{key: "session_preferences", label: "In-person / virtual session preferences", typ: "text"},
	},
	"therapist": {
		{key: "license_details", label: "License(s) and jurisdiction", typ: "textarea", required: true},
		{key: "therapy_modalities", label: "Therapy modalities practiced", typ: "textarea"},
		{key: "client_focus", label: "Client focus (age groups, specialties)", typ: "text"},
	},
	"doctor": {
		{key: "medical_specialty", label: "Medical specialty", typ: "text", required: true},
		{key: "license_details", label: "Medical license(s) and jurisdiction", typ: "textarea", required: true},
		{key: "practice_preferences", label: "Practice preferences or patient types", typ: "textarea"},
	},
	"photographer": {
		{key: "shoot_styles", label: "Primary shoot styles", typ: "text"},
		{key: "equipment_setup", label: "Equipment or studio setup", typ: "textarea"},
		{key: "editing_workflow", label: "Editing workflow or turnaround time", typ: "textarea"},
	},
	"consultant": {
		{key: "consulting_focus", label: "Consulting focus areas", typ: "textarea"},
		{key: "industries_served", label: "Industries served", typ: "text"},
		{key: "engagement_preferences", label: "Engagement preferences (onsite, remote, contract length)", typ: "textarea"},
	},
	"lawyer": {
		{key: "practice_areas", label: "Practice areas", typ: "text", required: true},
		{key: "bar_admissions", label: "Bar admissions", typ: "textarea", required: true},
		{key: "representative_work", label: "Representative matters or case experience", typ: "textarea"},
	},
	"real_estate": {
		{key: "license_details", label: "Real estate license(s) and markets", typ: "textarea", required: true},
		{key: "property_focus", label: "Property focus (residential, commercial, etc.)", typ: "text"},
		{key: "volume_summary", label: "Recent sales / leasing volume", typ: "textarea"},
	},
	"salon": {
		{key: "service_menu", label: "Service specialties", typ: "textarea"},
		{key: "licenses_certifications", label: "Licenses or certifications", typ: "textarea", required: true},
		{key: "product_preferences", label: "Preferred product lines", typ: "text"},
	},
	"tax_advisor": {
		{key: "professional_designation", label: "Professional designation (CPA, EA, etc.)", typ: "text", required: true},
		{key: "industry_focus", label: "Industry focus", typ: "text"},
		{key: "software_experience", label: "Tax software experience", typ: "textarea"},
	},
	"financial_advisor": {
		{key: "licenses_certifications", label: "Licenses and certifications", typ: "textarea", required: true},
		{key: "client_focus", label: "Client focus (individuals, SMB, enterprise)", typ: "text"},
		{key: "investment_philosophy", label: "Investment philosophy", typ: "textarea"},
	},
	"tutor": {
		{key: "subjects_tutored", label: "Subjects tutored", typ: "text"},
		{key: "grade_levels", label: "Grade levels supported", typ: "text"},
		{key: "test_prep_experience", label: "Test preparation experience", typ: "textarea"},
	},
	"event_planner": {
		{key: "event_types", label: "Event types planned", typ: "text"},
		{key: "budget_range", label: "Typical budget range", typ: "text"},
		{key: "vendor_network", label: "Vendor relationships or partners", typ: "textarea"},
	},
	"contractor": {
		{key: "trade_specialties", label: "Trade specialties", typ: "text", required: true},
		{key: "licenses_insurance", label: "Licenses and insurance", typ: "textarea", required: true},
		{key: "service_area", label: "Service area", typ: "text"},
	},
	"coach_life": {
		{key: "coaching_focus", label: "Coaching focus areas", typ: "textarea"},
		{key: "credentials", label: "Credentials or certifications", typ: "textarea"},
		{key: "session_format", label: "Preferred session format", typ: "text"},
	},
	"it_support": {
		{key: "technical_skills", label: "Technical skills and platforms", typ: "textarea", required: true},
		{key: "certifications", label: "Certifications", typ: "textarea"},
		{key: "ticketing_tools", label: "Ticketing / support tools used", typ: "text"},
	},
	"repair_service": {
		{key: "repair_specialties", label: "Repair specialties", typ: "text", required: true},
		{key: "certifications", label: "Certifications", typ: "textarea"},
		{key: "service_area", label: "Service area", typ: "text"},
	},
	"counselor": {
		{key: "license_details", label: "License(s) and jurisdiction", typ: "textarea", required: true},
		{key: "client_focus", label: "Client focus", typ: "text"},
		{key: "modalities", label: "Counseling modalities", typ: "textarea"},
	},
	"notary": {
		{key: "commission_details", label: "Commission details", typ: "textarea", required: true},
		{key: "service_area", label: "Service area", typ: "text"},
		{key: "special_services", label: "Special services (loan signings, etc.)", typ: "textarea"},
	},
	"custom": {},
}

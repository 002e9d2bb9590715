package constants

// RoleCategories is the fixed taxonomy the classifier is constrained to.
var RoleCategories = []string{
	"Software Engineer / Developer",
	"Data Scientist / ML Engineer",
	"Data Analyst / Business Intelligence",
	"DevOps / SRE / Platform Engineer",
	"Product Manager",
	"Engineering Manager / Tech Lead",
	"Designer (UX/UI)",
	"QA / Test Engineer",
	"Security Engineer",
	"Solutions Architect",
	"Technical Writer",
	"Other (specify)",
}

// SeniorityLevels is the ladder the classifier and the resume schema agree on.
var SeniorityLevels = []string{
	"Intern",
	"Junior",
	"Mid",
	"Senior",
	"Staff",
	"Principal",
	"Lead/Manager",
}

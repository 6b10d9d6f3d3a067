package tenant

import "time"

// starterPipeline / starterCustomer / starterJob は初期データテンプレートの
// 1エントリを表す。テンプレートは固定・バージョン管理対象のコンテンツで、
// 投入処理はその内容に関知しない。
type starterPipeline struct {
	Name        string
	Description string
	Steps       []string
	JobCount    int
}

type starterCustomer struct {
	Name       string
	Email      string
	Phone      string
	ActiveJobs int
	TotalJobs  int
}

type starterJob struct {
	Title       string
	Customer    string // starterCustomer.Nameを参照
	Pipeline    string // starterPipeline.Nameを参照
	CurrentStep string
	Status      string
	DueDate     *time.Time
	Progress    int
}

// starterTemplate は新規テナントに投入する初期データ一式。
type starterTemplate struct {
	Pipelines []starterPipeline
	Customers []starterCustomer
	Jobs      []starterJob
}

func dueDate(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// defaultTemplate は現行バージョンのテンプレートを返す。
// パイプライン2件・顧客3件・ジョブ3件。ジョブは顧客とパイプラインを
// 名前参照する。
func defaultTemplate() starterTemplate {
	return starterTemplate{
		Pipelines: []starterPipeline{
			{
				Name:        "Web Development",
				Description: "Standard web development workflow",
				Steps:       []string{"Initial Contact", "Requirements", "Design", "Development", "Testing", "Deployment"},
				JobCount:    8,
			},
			{
				Name:        "Mobile App Development",
				Description: "Mobile application development process",
				Steps:       []string{"Discovery", "Wireframes", "UI/UX", "Development", "Beta Testing", "App Store"},
				JobCount:    3,
			},
		},
		Customers: []starterCustomer{
			{
				Name:       "ABC Corp",
				Email:      "contact@abccorp.com",
				Phone:      "+1-555-0123",
				ActiveJobs: 2,
				TotalJobs:  5,
			},
			{
				Name:       "Tasty Bites",
				Email:      "info@tastybites.com",
				Phone:      "+1-555-0456",
				ActiveJobs: 1,
				TotalJobs:  2,
			},
			{
				Name:       "Jane Smith",
				Email:      "jane.smith@example.com",
				Phone:      "+1-555-0789",
				ActiveJobs: 1,
				TotalJobs:  1,
			},
		},
		Jobs: []starterJob{
			{
				Title:       "E-commerce Website",
				Customer:    "ABC Corp",
				Pipeline:    "Web Development",
				CurrentStep: "Development",
				Status:      "active",
				DueDate:     dueDate(2025, time.July, 1),
				Progress:    60,
			},
			{
				Title:       "Restaurant App",
				Customer:    "Tasty Bites",
				Pipeline:    "Mobile App Development",
				CurrentStep: "UI/UX",
				Status:      "active",
				DueDate:     dueDate(2025, time.July, 15),
				Progress:    30,
			},
			{
				Title:       "Portfolio Site",
				Customer:    "Jane Smith",
				Pipeline:    "Web Development",
				CurrentStep: "Testing",
				Status:      "active",
				DueDate:     dueDate(2025, time.June, 20),
				Progress:    85,
			},
		},
	}
}

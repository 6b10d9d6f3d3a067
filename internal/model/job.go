package model

import "time"

// JobStatus はジョブの進行状態を表す。
type JobStatus string

const (
	// JobStatusActive は進行中のジョブを示す。
	JobStatusActive JobStatus = "active"
	// JobStatusCompleted は完了したジョブを示す。
	JobStatusCompleted JobStatus = "completed"
	// JobStatusOnHold は保留中のジョブを示す。
	JobStatusOnHold JobStatus = "on-hold"
	// JobStatusCancelled はキャンセルされたジョブを示す。
	JobStatusCancelled JobStatus = "cancelled"
)

// ValidJobStatus はジョブステータスが定義済みの値かどうかを判定する。
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusActive, JobStatusCompleted, JobStatusOnHold, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Job は案件（ジョブ）を表す。パイプラインと顧客は名前参照で保持する。
type Job struct {
	ID          string
	UserID      string
	Title       string
	Customer    string
	Pipeline    string
	CurrentStep string
	Status      JobStatus
	DueDate     *time.Time
	Progress    int // 0-100
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Customer は顧客を表す。
type Customer struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Phone      string
	ActiveJobs int
	TotalJobs  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Pipeline は作業工程（パイプライン）を表す。Stepsは順序付きの工程名リスト。
type Pipeline struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Steps       []string
	JobCount    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DashboardStats はダッシュボードに表示する集計値。
type DashboardStats struct {
	ActiveJobs      int `json:"active_jobs"`
	TotalCustomers  int `json:"total_customers"`
	TotalPipelines  int `json:"total_pipelines"`
	JobsDueThisWeek int `json:"jobs_due_this_week"`
}

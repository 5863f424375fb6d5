package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/examdesk/exam-duty-api/internal/models"
	"github.com/examdesk/exam-duty-api/internal/repository"
	"github.com/examdesk/exam-duty-api/pkg/config"
	"github.com/examdesk/exam-duty-api/pkg/database"
)

// Seeds a local database with a teacher pool and a sample exam day so the
// allocator can be exercised end to end without the production directory.
func main() {
	var (
		teacherCount int
		examDate     string
		blockCount   int
	)

	flag.IntVar(&teacherCount, "teachers", 8, "number of teachers to seed")
	flag.StringVar(&examDate, "date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "exam date (YYYY-MM-DD)")
	flag.IntVar(&blockCount, "blocks", 3, "blocks per exam")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	examRepo := repository.NewExamRepository(db)

	weekdaySets := [][]string{
		{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		{"Monday", "Wednesday", "Friday"},
		{"Tuesday", "Thursday"},
		{"Monday", "Tuesday", "Thursday"},
	}
	subjects := []string{"Mathematics", "Physics", "Chemistry", "Computer Science"}

	const insertTeacher = `INSERT INTO teachers (id, full_name, email, role, subjects, available_days, active, created_at, updated_at)
		VALUES (:id, :full_name, :email, :role, :subjects, :available_days, :active, :created_at, :updated_at)
		ON CONFLICT (id) DO NOTHING`
	now := time.Now().UTC()
	for i := 0; i < teacherCount; i++ {
		teacher := models.Teacher{
			ID:            fmt.Sprintf("seed-teacher-%d", i+1),
			FullName:      fmt.Sprintf("Seed Teacher %d", i+1),
			Email:         fmt.Sprintf("seed.teacher.%d@school.test", i+1),
			Role:          models.RoleTeacher,
			Subjects:      []string{subjects[i%len(subjects)]},
			AvailableDays: weekdaySets[i%len(weekdaySets)],
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := db.NamedExecContext(ctx, insertTeacher, teacher); err != nil {
			log.Fatalf("failed to seed teacher %s: %v", teacher.ID, err)
		}
	}

	slots := [][2]string{{"09:00", "11:00"}, {"11:00", "13:00"}, {"14:00", "16:00"}}
	for i, slot := range slots {
		blocks := make(models.BlockList, 0, blockCount)
		for b := 1; b <= blockCount; b++ {
			blocks = append(blocks, models.Block{
				Number:   b,
				Capacity: 30,
				Location: fmt.Sprintf("Room %c", 'A'+b-1),
				Status:   models.BlockStatusPending,
			})
		}
		exam := &models.Exam{
			ID:        fmt.Sprintf("seed-exam-%d", i+1),
			ExamName:  "Seed Midterm",
			Subject:   subjects[i%len(subjects)],
			Branch:    "CSE",
			Semester:  4,
			Date:      examDate,
			StartTime: slot[0],
			EndTime:   slot[1],
			Status:    models.ExamStatusScheduled,
			Blocks:    blocks,
		}
		if err := examRepo.Create(ctx, exam); err != nil {
			log.Fatalf("failed to seed exam %s: %v", exam.ID, err)
		}
	}

	log.Printf("seeded %d teachers and %d exams on %s", teacherCount, len(slots), examDate)
}

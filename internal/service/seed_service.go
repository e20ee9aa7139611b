package service

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskbridge/backend/internal/models"
	"github.com/taskbridge/backend/internal/repository"
)

// SeedService наполняет базу демонстрационными данными для разработки.
// Все данные проходят через обычные репозитории, включая начисление
// токенов через леджер - сидер не обходит инварианты баланса.
type SeedService struct {
	userRepo   *repository.UserRepository
	jobRepo    *repository.JobRepository
	ledgerRepo *repository.LedgerRepository
}

// NewSeedService создаёт сервис генерации данных.
func NewSeedService(userRepo *repository.UserRepository, jobRepo *repository.JobRepository, ledgerRepo *repository.LedgerRepository) *SeedService {
	return &SeedService{
		userRepo:   userRepo,
		jobRepo:    jobRepo,
		ledgerRepo: ledgerRepo,
	}
}

// SeedData генерирует пользователей и объявления.
func (s *SeedService) SeedData(ctx context.Context, numUsers, numJobs int) error {
	customers, workers, err := s.generateUsers(ctx, numUsers)
	if err != nil {
		return fmt.Errorf("seed service: generate users %w", err)
	}

	if err := s.generateJobs(ctx, customers, numJobs); err != nil {
		return fmt.Errorf("seed service: generate jobs %w", err)
	}

	// У каждого исполнителя стартовый запас токенов, чтобы демо-отклики
	// на premium объявления проходили.
	for _, worker := range workers {
		key := fmt.Sprintf("seed:%s", worker.ID)
		if _, err := s.ledgerRepo.Credit(ctx, worker.ID, 50, models.LedgerReasonPurchaseCredit, key); err != nil {
			return fmt.Errorf("seed service: credit worker %w", err)
		}
	}

	return nil
}

func (s *SeedService) generateUsers(ctx context.Context, count int) (customers, workers []*models.User, err error) {
	names := []string{
		"alexander", "dmitry", "maxim", "sergey", "andrey", "artem", "ilya",
		"ivan", "mikhail", "nikita", "roman", "egor", "pavel", "anna",
		"maria", "elena", "olga", "tatiana", "irina", "ekaterina", "daria",
	}
	domains := []string{"gmail.com", "yandex.ru", "mail.ru", "outlook.com"}

	passHash, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	if err != nil {
		return nil, nil, err
	}

	for i := 0; i < count; i++ {
		name := names[rand.Intn(len(names))]
		email := fmt.Sprintf("%s%d@%s", name, rand.Intn(10000), domains[rand.Intn(len(domains))])

		role := models.RoleWorker
		if i%3 == 0 {
			role = models.RoleCustomer
		}

		user := &models.User{
			Email:        email,
			Username:     fmt.Sprintf("%s_%d", name, rand.Intn(10000)),
			PasswordHash: string(passHash),
			Role:         role,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			// Коллизия email при генерации не страшна, пропускаем.
			continue
		}

		if role == models.RoleCustomer {
			customers = append(customers, user)
		} else {
			workers = append(workers, user)
		}
	}

	if len(customers) == 0 {
		return nil, nil, fmt.Errorf("не удалось создать ни одного заказчика")
	}
	return customers, workers, nil
}

func (s *SeedService) generateJobs(ctx context.Context, customers []*models.User, count int) error {
	titles := []string{
		"Разработка интернет-магазина",
		"Мобильное приложение для доставки",
		"Дизайн посадочной страницы",
		"Интеграция платёжной системы",
		"Настройка CI/CD pipeline",
		"Разработка REST API",
		"Оптимизация базы данных",
		"Чат-бот для поддержки клиентов",
		"Система бронирования",
		"Панель аналитики",
	}
	descriptions := []string{
		"Требуется разработка современного веб-сайта с адаптивным дизайном, каталогом и личным кабинетом.",
		"Нужно создать мобильное приложение с авторизацией, геолокацией и системой уведомлений.",
		"Требуется интегрировать платёжную систему в существующее приложение, обработать все сценарии оплаты.",
		"Необходимо оптимизировать производительность запросов и настроить репликацию PostgreSQL.",
		"Требуется разработать API для мобильного приложения с авторизацией и работой с заказами.",
	}

	for i := 0; i < count; i++ {
		customer := customers[rand.Intn(len(customers))]

		job := &models.JobListing{
			CustomerID:  customer.ID,
			Title:       titles[rand.Intn(len(titles))],
			Description: descriptions[rand.Intn(len(descriptions))],
			Status:      models.JobStatusPending,
		}

		// Примерно треть объявлений premium.
		if rand.Intn(3) == 0 {
			job.Premium = true
			job.TokenCost = int64(rand.Intn(5) + 1)
		}

		if err := s.jobRepo.Create(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

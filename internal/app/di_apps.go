package app

import (
	"fmt"
	"sync"

	appsRepository "github.com/allisson/eventhub/internal/apps/repository"
	appsService "github.com/allisson/eventhub/internal/apps/service"
	appsUseCase "github.com/allisson/eventhub/internal/apps/usecase"
	"github.com/allisson/eventhub/internal/database"
)

type appsComponents struct {
	applicationRepository appsUseCase.ApplicationRepository
	applicationUseCase    appsUseCase.ApplicationUseCase

	applicationRepositoryInit sync.Once
	applicationUseCaseInit    sync.Once
}

// ApplicationRepository returns the application repository based on database driver.
func (c *Container) ApplicationRepository() (appsUseCase.ApplicationRepository, error) {
	var err error
	c.applicationRepositoryInit.Do(func() {
		c.applicationRepository, err = c.initApplicationRepository()
		if err != nil {
			c.initErrors["applicationRepository"] = err
		}
	})
	if storedErr, exists := c.initErrors["applicationRepository"]; exists {
		return nil, storedErr
	}
	return c.applicationRepository, nil
}

// ApplicationUseCase returns the application use case, decorated with metrics.
func (c *Container) ApplicationUseCase() (appsUseCase.ApplicationUseCase, error) {
	var err error
	c.applicationUseCaseInit.Do(func() {
		c.applicationUseCase, err = c.initApplicationUseCase()
		if err != nil {
			c.initErrors["applicationUseCase"] = err
		}
	})
	if storedErr, exists := c.initErrors["applicationUseCase"]; exists {
		return nil, storedErr
	}
	return c.applicationUseCase, nil
}

func (c *Container) initApplicationRepository() (appsUseCase.ApplicationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for application repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return appsRepository.NewMySQLApplicationRepository(db), nil
	case database.DriverPostgres:
		return appsRepository.NewPostgreSQLApplicationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initApplicationUseCase() (appsUseCase.ApplicationUseCase, error) {
	appRepo, err := c.ApplicationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get application repository for application use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := appsUseCase.NewApplicationUseCase(appRepo, appsService.NewKeyService())
	return appsUseCase.NewApplicationUseCaseWithMetrics(useCase, businessMetrics), nil
}

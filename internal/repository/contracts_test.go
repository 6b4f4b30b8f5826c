package repository_test

import (
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/service"
)

var (
	_ service.AccountStore   = (*repository.AccountRepo)(nil)
	_ service.TokenStore     = (*repository.TokenRepo)(nil)
	_ service.CourseStore    = (*repository.CourseRepo)(nil)
	_ service.RideStore      = (*repository.RideRepo)(nil)
	_ service.WorkOrderStore = (*repository.WorkOrderRepo)(nil)
	_ service.ProjectStore   = (*repository.ProjectRepo)(nil)
)

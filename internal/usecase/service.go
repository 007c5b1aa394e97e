package usecase

import (
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/lock"
	"github.com/sriman99/Evently-Challenge/internal/queue"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking  BookingService
	Capacity CapacityService
	Waitlist WaitlistService
	Sweeper  SweeperService
}

func NewService(
	repo *repository.Repository,
	locks lock.Manager,
	payments PaymentGateway,
	events queue.Publisher,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	capacity := NewCapacityService(repo, log)

	return &Service{
		Booking:  NewBookingService(repo, locks, capacity, payments, events, config.Booking, log),
		Capacity: capacity,
		Waitlist: NewWaitlistService(repo, log),
		Sweeper:  NewSweeperService(repo, events, config.Booking, log),
	}
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/coupleup/internal/db"
	"gorm.io/gorm"
)

// ErrStoryAlreadyStarted 在故事已开始后再次调用 Start 时返回
var ErrStoryAlreadyStarted = errors.New("story already started")

// maxFunLevel 限制页面评分的上限。
const maxFunLevel = 10

// StoryService 负责线性故事的进度：开始、查询、按页写入。
// 进度行以 (couple_id, page_number) 唯一，重复提交同一页走更新。
type StoryService struct {
	db *gorm.DB
}

// StoryStatus 是 GET /story/status 的响应数据
type StoryStatus struct {
	CurrentPage    int
	StartedAt      *time.Time
	CompletedPages []CompletedPage
}

// CompletedPage 描述一条已完成页面记录
type CompletedPage struct {
	PageNumber  int       `json:"page_number"`
	CompletedAt time.Time `json:"completed_at"`
	FunLevel    int       `json:"fun_level"`
	Comments    string    `json:"comments"`
}

// NewStoryService 构造 StoryService
func NewStoryService(gdb *gorm.DB) *StoryService {
	return &StoryService{db: gdb}
}

// Start 开启 Couple 的故事：置起始时间并把当前页归零，只允许一次。
func (s *StoryService) Start(coupleID uint) (*db.Couple, error) {
	var couple db.Couple
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&couple, coupleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCoupleNotFound
			}
			return fmt.Errorf("find couple: %w", err)
		}

		if couple.StoryStartedAt != nil {
			return ErrStoryAlreadyStarted
		}

		now := time.Now()
		couple.StoryStartedAt = &now
		couple.StoryCurrentPage = 0
		if err := tx.Save(&couple).Error; err != nil {
			return fmt.Errorf("start story: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &couple, nil
}

// Status 返回当前页、开始时间与全部已完成页面（按页码升序）。
func (s *StoryService) Status(coupleID uint) (*StoryStatus, error) {
	var couple db.Couple
	if err := s.db.First(&couple, coupleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoupleNotFound
		}
		return nil, fmt.Errorf("find couple: %w", err)
	}

	var progress []db.StoryProgress
	if err := s.db.
		Where("couple_id = ?", coupleID).
		Order("page_number").
		Find(&progress).Error; err != nil {
		return nil, fmt.Errorf("list story progress: %w", err)
	}

	pages := make([]CompletedPage, 0, len(progress))
	for _, entry := range progress {
		pages = append(pages, CompletedPage{
			PageNumber:  entry.PageNumber,
			CompletedAt: entry.CompletedAt,
			FunLevel:    entry.FunLevel,
			Comments:    entry.Comments,
		})
	}

	return &StoryStatus{
		CurrentPage:    couple.StoryCurrentPage,
		StartedAt:      couple.StoryStartedAt,
		CompletedPages: pages,
	}, nil
}

// RecordProgress 按页写入完成记录。同一页已有记录时更新评分、评论与完成时间，
// 未提交的字段沿用已有记录的值；记录的是当前页时顺带把 Couple 的游标推进一页。
func (s *StoryService) RecordProgress(coupleID uint, pageNumber int, funLevel *int, comments *string) (*db.StoryProgress, error) {
	if err := ValidateID(pageNumber, "page number"); err != nil {
		return nil, err
	}
	if funLevel != nil && (*funLevel < 0 || *funLevel > maxFunLevel) {
		return nil, validationErrorf("fun level must be between 0 and %d", maxFunLevel)
	}
	if comments != nil {
		validated, err := ValidateComments(*comments)
		if err != nil {
			return nil, err
		}
		comments = &validated
	}

	var progress db.StoryProgress
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("couple_id = ? AND page_number = ?", coupleID, pageNumber).First(&progress).Error
		switch {
		case err == nil:
			if funLevel != nil {
				progress.FunLevel = *funLevel
			}
			if comments != nil {
				progress.Comments = *comments
			}
			progress.CompletedAt = time.Now()
			if err := tx.Save(&progress).Error; err != nil {
				return fmt.Errorf("update story progress: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if funLevel == nil {
				return validationErrorf("fun level is required")
			}
			progress = db.StoryProgress{
				CoupleID:    coupleID,
				PageNumber:  pageNumber,
				CompletedAt: time.Now(),
				FunLevel:    *funLevel,
			}
			if comments != nil {
				progress.Comments = *comments
			}
			if err := tx.Create(&progress).Error; err != nil {
				return fmt.Errorf("create story progress: %w", err)
			}
		default:
			return fmt.Errorf("find story progress: %w", err)
		}

		var couple db.Couple
		if err := tx.First(&couple, coupleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCoupleNotFound
			}
			return fmt.Errorf("find couple: %w", err)
		}
		if couple.StoryStartedAt != nil && pageNumber == couple.StoryCurrentPage {
			couple.StoryCurrentPage = pageNumber + 1
			if err := tx.Save(&couple).Error; err != nil {
				return fmt.Errorf("advance story page: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

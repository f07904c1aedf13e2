package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/ninja0404/token-tracker/internal/model"
)

type TokenInfoRepo interface {
	// GetTokenInfos 批量获取代币信息，不存在的 mint 不返回
	GetTokenInfos(ctx context.Context, mints []string) ([]*model.TokensInfo, error)

	// GetTokenInfo 根据代币地址获取代币信息，不存在返回 nil
	GetTokenInfo(ctx context.Context, tokenAddress string) (*model.TokensInfo, error)
}

type tokenInfoRepoImpl struct {
	db *gorm.DB
}

func NewTokenInfoRepo(db *gorm.DB) TokenInfoRepo {
	return &tokenInfoRepoImpl{
		db: db,
	}
}

// tokenInfoColumns 元数据解析用到的列
var tokenInfoColumns = []string{"token_address", "name", "symbol", "decimals", "current_price", "price_update_time"}

// GetTokenInfos 批量获取代币信息
func (r *tokenInfoRepoImpl) GetTokenInfos(ctx context.Context, mints []string) ([]*model.TokensInfo, error) {
	if len(mints) == 0 {
		return nil, nil
	}

	var infos []*model.TokensInfo
	err := r.db.WithContext(ctx).
		Select(tokenInfoColumns).
		Where("token_address IN ?", mints).
		Find(&infos).Error
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// GetTokenInfo 根据代币地址获取代币信息
func (r *tokenInfoRepoImpl) GetTokenInfo(ctx context.Context, tokenAddress string) (*model.TokensInfo, error) {
	var tokenInfo model.TokensInfo

	err := r.db.WithContext(ctx).
		Select(tokenInfoColumns).
		Where("token_address = ?", tokenAddress).
		First(&tokenInfo).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // 如果没找到，返回空
		}
		return nil, err
	}

	return &tokenInfo, nil
}

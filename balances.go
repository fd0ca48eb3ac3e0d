package main

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultTargetCurrency = "EUR"

// balancePerCurrency sums non-excluded transactions grouped by currency.
// Excluded rows stay in the ledger for audit but never count toward a
// balance.
func balancePerCurrency(ctx context.Context, q querier) (map[string]decimal.Decimal, error) {
	rows, err := q.Query(ctx, `
		SELECT currency, SUM(amount)::text
		FROM transactions
		WHERE NOT excluded
		GROUP BY currency
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var currency, sum string
		if err := rows.Scan(&currency, &sum); err != nil {
			return nil, err
		}
		balance, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, err
		}
		balances[currency] = balance
	}
	return balances, rows.Err()
}

// sumConverted folds per-currency balances into one target-currency total.
// A currency whose conversion fails contributes zero and is reported back,
// so the caller knows the total is partial instead of silently wrong.
func sumConverted(ctx context.Context, provider RateProvider, balances map[string]decimal.Decimal, target string) TotalBalance {
	result := TotalBalance{Currency: target, Total: decimal.Zero}
	for _, currency := range sortedCurrencies(balances) {
		converted, err := convertAmount(ctx, provider, currency, target, balances[currency])
		if err != nil {
			logger.Warn().Err(err).Str("currency", currency).Str("target", target).Msg("Conversion failed, omitting currency from total")
			result.FailedCurrencies = append(result.FailedCurrencies, currency)
			continue
		}
		result.Total = result.Total.Add(converted)
	}
	return result
}

func totalBalance(ctx context.Context, q querier, provider RateProvider, target string) (TotalBalance, error) {
	balances, err := balancePerCurrency(ctx, q)
	if err != nil {
		return TotalBalance{}, err
	}
	return sumConverted(ctx, provider, balances, target), nil
}

// balancesInCommonCurrency is the per-currency breakdown with each balance
// also expressed in the target currency. Failed conversions carry an error
// marker instead of a converted value.
func balancesInCommonCurrency(ctx context.Context, q querier, provider RateProvider, target string) ([]ConvertedBalance, error) {
	balances, err := balancePerCurrency(ctx, q)
	if err != nil {
		return nil, err
	}

	result := make([]ConvertedBalance, 0, len(balances))
	for _, currency := range sortedCurrencies(balances) {
		entry := ConvertedBalance{Currency: currency, Balance: balances[currency]}
		converted, err := convertAmount(ctx, provider, currency, target, balances[currency])
		if err != nil {
			logger.Warn().Err(err).Str("currency", currency).Str("target", target).Msg("Conversion failed for breakdown entry")
			entry.Error = "conversion failed"
		} else {
			entry.Converted = &converted
		}
		result = append(result, entry)
	}
	return result, nil
}

func sortedCurrencies(balances map[string]decimal.Decimal) []string {
	currencies := make([]string, 0, len(balances))
	for currency := range balances {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}

// @Summary Get balance per currency
// @Description Sum non-excluded transactions grouped by currency
// @Tags balances
// @Produce json
// @Success 200 {array} CurrencyBalance "Per-currency balances"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/balances [get]
func getBalances(c *gin.Context) {
	balances, err := balancePerCurrency(c.Request.Context(), dbPool)
	if err != nil {
		logger.Error().Err(err).Msg("Error calculating balances")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error calculating balances"})
		return
	}

	result := make([]CurrencyBalance, 0, len(balances))
	for _, currency := range sortedCurrencies(balances) {
		result = append(result, CurrencyBalance{Currency: currency, Balance: balances[currency]})
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Get total balance
// @Description Total ledger balance in one target currency; currencies whose conversion failed are listed and contribute zero
// @Tags balances
// @Produce json
// @Param currency query string false "Target currency code (default EUR)"
// @Success 200 {object} TotalBalance "Total with partial-result warnings"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/balances/total [get]
func getTotalBalance(c *gin.Context) {
	target := c.DefaultQuery("currency", defaultTargetCurrency)

	total, err := totalBalance(c.Request.Context(), dbPool, rates, target)
	if err != nil {
		logger.Error().Err(err).Msg("Error calculating total balance")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error calculating total balance"})
		return
	}

	c.JSON(http.StatusOK, total)
}

// @Summary Get balances converted to a common currency
// @Description Per-currency breakdown with each balance converted to the target currency
// @Tags balances
// @Produce json
// @Param currency query string false "Target currency code (default EUR)"
// @Success 200 {array} ConvertedBalance "Converted breakdown"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/balances/converted [get]
func getConvertedBalances(c *gin.Context) {
	target := c.DefaultQuery("currency", defaultTargetCurrency)

	result, err := balancesInCommonCurrency(c.Request.Context(), dbPool, rates, target)
	if err != nil {
		logger.Error().Err(err).Msg("Error calculating converted balances")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error calculating converted balances"})
		return
	}

	c.JSON(http.StatusOK, result)
}

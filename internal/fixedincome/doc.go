// Package fixedincome implements Treasury note and bond analytics.
//
// Coupons are annual rates in percent of a 100 par face, yields are decimals
// (0.045 for 4.5%), and prices are percent of par. Functions that can divide
// by zero or lack an input return ErrUndefined instead of NaN or Inf.
package fixedincome

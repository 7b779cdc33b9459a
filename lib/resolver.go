package lib

// ModuleResolver is the pluggable capability for injecting platform shims
// into the app bundler's module resolution. Given a module request string it
// returns a replacement expression and true, or ok=false when the request is
// not handled and normal resolution should proceed.
//
// The aggregation server carries a resolver on behalf of its upstream
// collaborators but never invokes it itself; module resolution happens inside
// the bundlers.
type ModuleResolver func(request string) (replacement string, ok bool)
